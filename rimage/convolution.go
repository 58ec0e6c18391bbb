package rimage

import (
	"image"

	"go.viam.com/artrack/utils"
)

// ConvolveGray applies a convolution matrix (Kernel) to a grayscale image.
// Example of usage:
//
//	res, err := rimage.ConvolveGray(img, kernel, image.Point{1, 1}, rimage.BorderReflect)
//
// Note: the anchor represents a point inside the area of the kernel. After every step of the convolution the position
// specified by the anchor point gets updated on the result image.
func ConvolveGray(img *image.Gray, kernel *Kernel, anchor image.Point, border BorderPad) (*image.Gray, error) {
	kernelSize := kernel.Size()
	padded, err := PaddingGray(img, kernelSize, anchor, border)
	if err != nil {
		return nil, err
	}
	originalSize := img.Bounds().Size()
	resultImage := image.NewGray(image.Rect(0, 0, originalSize.X, originalSize.Y))
	utils.ParallelForEachPixel(originalSize, func(x, y int) {
		sum := float64(0)
		for ky := 0; ky < kernelSize.Y; ky++ {
			row := padded.Pix[(y+ky)*padded.Stride+x:]
			for kx := 0; kx < kernelSize.X; kx++ {
				sum += float64(row[kx]) * kernel.At(kx, ky)
			}
		}
		sum = utils.ClampF64(sum+0.5, 0, 255)
		resultImage.Pix[y*resultImage.Stride+x] = uint8(sum)
	})
	return resultImage, nil
}
