package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"

	"go.viam.com/artrack/rimage"
)

const overlayLineWidth = 2

// DrawCubeOverlay draws the cube wireframe at pose over a copy of frame. Each edge is colored with
// the blend of its two vertex colors.
func DrawCubeOverlay(frame image.Image, projection, pose mgl64.Mat4, scale float64) image.Image {
	dc := gg.NewContextForImage(frame)
	viewport := image.Rect(0, 0, dc.Width(), dc.Height())
	modelView := CubeModelView(pose, scale)

	var pts [len(CubeVertices)]r2.Point
	var visible [len(CubeVertices)]bool
	for i, v := range CubeVertices {
		pts[i], visible[i] = ProjectVertex(projection, modelView, v, viewport)
	}
	dc.SetLineWidth(overlayLineWidth)
	for _, e := range CubeEdges() {
		a, b := e[0], e[1]
		if !visible[a] || !visible[b] {
			continue
		}
		dc.SetColor(edgeColor(CubeVertexColors[a], CubeVertexColors[b]))
		dc.DrawLine(pts[a].X, pts[a].Y, pts[b].X, pts[b].Y)
		dc.Stroke()
	}
	return dc.Image()
}

func edgeColor(c1, c2 color.Color) color.Color {
	cc1, _ := colorful.MakeColor(c1)
	cc2, _ := colorful.MakeColor(c2)
	return cc1.BlendLab(cc2, 0.5).Clamped()
}

// DrawStatus writes text in the lower left corner of a copy of frame.
func DrawStatus(frame image.Image, text string) image.Image {
	dc := gg.NewContextForImage(frame)
	const size = 14
	rimage.DrawString(dc, text, image.Point{X: 4, Y: dc.Height() - 2*size}, color.NRGBA{R: 255, G: 255, A: 255}, size)
	return dc.Image()
}
