package rimage

import (
	"image"

	"github.com/pkg/errors"
)

// Kernel is a 2D convolution filter stored row-major.
type Kernel struct {
	Content [][]float64
	Height  int
	Width   int
}

// NewKernel returns a new kernel from a row-major slice of rows.
func NewKernel(content [][]float64) (*Kernel, error) {
	if len(content) == 0 || len(content[0]) == 0 {
		return nil, errors.New("kernel must have at least one element")
	}
	width := len(content[0])
	for _, row := range content {
		if len(row) != width {
			return nil, errors.New("kernel rows must all have the same length")
		}
	}
	return &Kernel{content, len(content), width}, nil
}

// Size returns the kernel size as an image.Point.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// At returns the element at column x, row y.
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// AbSum returns the sum of the absolute values of the kernel elements.
func (k *Kernel) AbSum() float64 {
	var sum float64
	for _, row := range k.Content {
		for _, v := range row {
			if v < 0 {
				sum -= v
			} else {
				sum += v
			}
		}
	}
	return sum
}

// Normalize returns a copy of the kernel scaled so its absolute values sum to 1.
func (k *Kernel) Normalize() *Kernel {
	sum := k.AbSum()
	if sum == 0 {
		sum = 1
	}
	content := make([][]float64, k.Height)
	for y, row := range k.Content {
		content[y] = make([]float64, k.Width)
		for x, v := range row {
			content[y][x] = v / sum
		}
	}
	return &Kernel{content, k.Height, k.Width}
}

// GetGaussian5 returns the normalized 5x5 binomial approximation of a Gaussian kernel.
func GetGaussian5() *Kernel {
	k := &Kernel{
		[][]float64{
			{1, 4, 6, 4, 1},
			{4, 16, 24, 16, 4},
			{6, 24, 36, 24, 6},
			{4, 16, 24, 16, 4},
			{1, 4, 6, 4, 1},
		},
		5,
		5,
	}
	return k.Normalize()
}

// GetSobelX returns the Kernel corresponding to the Sobel kernel in the x direction.
func GetSobelX() *Kernel {
	return &Kernel{
		[][]float64{
			{-1, 0, 1},
			{-2, 0, 2},
			{-1, 0, 1},
		},
		3,
		3,
	}
}
