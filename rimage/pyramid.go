package rimage

import (
	"image"

	"github.com/pkg/errors"
)

// ImagePyramid holds successively downscaled copies of an image. Scales[i] converts layer i
// coordinates back into layer 0 coordinates.
type ImagePyramid struct {
	Images []*image.Gray
	Scales []float64
}

// GetImagePyramid builds a pyramid of at most nLayers layers. Each layer is a box average of
// factor x factor blocks of the previous one. Building stops early when a layer would be smaller
// than minSize in either dimension.
func GetImagePyramid(img *image.Gray, nLayers, factor, minSize int) (*ImagePyramid, error) {
	if nLayers < 1 {
		return nil, errors.Errorf("pyramid needs at least 1 layer, got %d", nLayers)
	}
	if factor < 2 {
		return nil, errors.Errorf("downscale factor must be at least 2, got %d", factor)
	}
	base := ToOrigin(img)
	pyramid := &ImagePyramid{
		Images: []*image.Gray{base},
		Scales: []float64{1},
	}
	current := base
	scale := 1.
	for i := 1; i < nLayers; i++ {
		size := current.Bounds().Size()
		if size.X/factor < minSize || size.Y/factor < minSize {
			break
		}
		current = DownscaleGray(current, factor)
		scale *= float64(factor)
		pyramid.Images = append(pyramid.Images, current)
		pyramid.Scales = append(pyramid.Scales, scale)
	}
	return pyramid, nil
}

// DownscaleGray averages factor x factor blocks. Leftover rows and columns are dropped.
func DownscaleGray(img *image.Gray, factor int) *image.Gray {
	src := ToOrigin(img)
	w, h := src.Rect.Dx()/factor, src.Rect.Dy()/factor
	dst := image.NewGray(image.Rect(0, 0, w, h))
	area := factor * factor
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for dy := 0; dy < factor; dy++ {
				row := src.Pix[(y*factor+dy)*src.Stride+x*factor:]
				for dx := 0; dx < factor; dx++ {
					sum += int(row[dx])
				}
			}
			dst.Pix[y*dst.Stride+x] = uint8((sum + area/2) / area)
		}
	}
	return dst
}
