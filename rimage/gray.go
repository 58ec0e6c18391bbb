// Package rimage holds the grayscale image helpers used by the feature pipeline.
package rimage

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// register the extra decoders accepted for reference targets.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ToGray converts any image to an *image.Gray with its origin at (0, 0). Gray inputs already at
// the origin are returned as is.
func ToGray(img image.Image) *image.Gray {
	if img == nil {
		return nil
	}
	if g, ok := img.(*image.Gray); ok {
		return ToOrigin(g)
	}
	b := img.Bounds()
	result := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(result, result.Bounds(), img, b.Min, draw.Src)
	return result
}

// ToOrigin returns img translated so its bounds start at (0, 0), copying only when needed.
func ToOrigin(img *image.Gray) *image.Gray {
	if img.Rect.Min == (image.Point{}) {
		return img
	}
	b := img.Bounds()
	result := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(result, result.Bounds(), img, b.Min, draw.Src)
	return result
}

// IsEmpty is true for a nil image or one without pixels.
func IsEmpty(img image.Image) bool {
	if img == nil {
		return true
	}
	if g, ok := img.(*image.Gray); ok && g == nil {
		return true
	}
	return img.Bounds().Empty()
}

// ReadImageFromFile decodes a png, jpeg, gif, bmp or webp file, applying its exif orientation.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return img, nil
}

// ReadGrayFromFile is ReadImageFromFile followed by ToGray.
func ReadGrayFromFile(path string) (*image.Gray, error) {
	img, err := ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}
