package rimage

import (
	"image"

	"github.com/pkg/errors"
)

// BorderPad selects how pixels outside of an image are filled.
type BorderPad int

const (
	// BorderConstant pads with zeros.
	BorderConstant BorderPad = iota
	// BorderReplicate repeats the edge pixel.
	BorderReplicate
	// BorderReflect mirrors the image about its edge, without repeating the edge pixel.
	BorderReflect
)

// PaddingGray pads a gray image so a kernel of the given size anchored at anchor can be applied
// to every original pixel. The result has its origin at (0, 0).
func PaddingGray(img *image.Gray, kernelSize, anchor image.Point, border BorderPad) (*image.Gray, error) {
	if anchor.X < 0 || anchor.Y < 0 || anchor.X >= kernelSize.X || anchor.Y >= kernelSize.Y {
		return nil, errors.Errorf("anchor %v outside of kernel of size %v", anchor, kernelSize)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("cannot pad an empty image")
	}
	left, top := anchor.X, anchor.Y
	padded := image.NewGray(image.Rect(0, 0, w+kernelSize.X-1, h+kernelSize.Y-1))
	pw, ph := padded.Rect.Dx(), padded.Rect.Dy()
	for y := 0; y < ph; y++ {
		sy, okY := borderIndex(y-top, h, border)
		for x := 0; x < pw; x++ {
			sx, okX := borderIndex(x-left, w, border)
			if !okX || !okY {
				continue
			}
			padded.Pix[y*padded.Stride+x] = img.Pix[img.PixOffset(bounds.Min.X+sx, bounds.Min.Y+sy)]
		}
	}
	return padded, nil
}

// borderIndex maps a possibly out of range index into [0, n). It returns false when the pixel
// should stay at the constant border value.
func borderIndex(i, n int, border BorderPad) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch border {
	case BorderReplicate:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	case BorderReflect:
		if n == 1 {
			return 0, true
		}
		period := 2 * (n - 1)
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i, true
	case BorderConstant:
		return 0, false
	default:
		return 0, false
	}
}
