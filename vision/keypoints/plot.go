package keypoints

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// PlotKeypoints draws keypoints on img, circles growing with the octave, and saves a png.
func PlotKeypoints(img image.Image, kps []KeyPoint, outName string) error {
	dc := gg.NewContextForImage(img)
	drawKeypoints(dc, kps, 0, 0)
	return dc.SavePNG(outName)
}

func drawKeypoints(dc *gg.Context, kps []KeyPoint, offsetX, offsetY float64) {
	dc.SetRGBA(0, 0, 1, 0.5)
	for _, kp := range kps {
		dc.DrawCircle(kp.Point.X+offsetX, kp.Point.Y+offsetY, 3*kp.Scale)
		dc.Fill()
	}
}

// PlotMatchedLines draws the scene and the reference side by side, or stacked when vertical is
// true, and links matched keypoints with a line.
func PlotMatchedLines(scene, reference image.Image, sceneKps, refKps []KeyPoint,
	matches []DescriptorMatch, vertical bool,
) (image.Image, error) {
	matchedScene, matchedRef, err := GetMatchingKeyPoints(matches, sceneKps, refKps)
	if err != nil {
		return nil, err
	}
	sb, rb := scene.Bounds(), reference.Bounds()
	var w, h int
	var offX, offY float64
	if vertical {
		w, h = max(sb.Dx(), rb.Dx()), sb.Dy()+rb.Dy()
		offY = float64(sb.Dy())
	} else {
		w, h = sb.Dx()+rb.Dx(), max(sb.Dy(), rb.Dy())
		offX = float64(sb.Dx())
	}
	dc := gg.NewContext(w, h)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.DrawImage(scene, 0, 0)
	dc.DrawImage(reference, int(offX), int(offY))
	drawKeypoints(dc, sceneKps, 0, 0)
	drawKeypoints(dc, refKps, offX, offY)

	dc.SetRGB(0, 1, 0)
	dc.SetLineWidth(1)
	for i := range matchedScene {
		dc.DrawLine(matchedScene[i].Point.X, matchedScene[i].Point.Y,
			matchedRef[i].Point.X+offX, matchedRef[i].Point.Y+offY)
		dc.Stroke()
	}
	return dc.Image(), nil
}
