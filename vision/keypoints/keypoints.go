// Package keypoints contains the feature pipeline: FAST corners on an image pyramid, oriented
// BRIEF descriptors and brute force Hamming matching.
package keypoints

import (
	"cmp"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"golang.org/x/exp/slices"

	"go.viam.com/artrack/utils"
)

// KeyPoint is a detected corner. Point is expressed in pixels of the full resolution image.
type KeyPoint struct {
	Point       r2.Point
	Octave      int
	Scale       float64
	Orientation float64
	Response    float64
}

// LayerPoint returns the integer pixel of the keypoint in its own pyramid layer.
func (kp KeyPoint) LayerPoint() image.Point {
	scale := kp.Scale
	if scale <= 0 {
		scale = 1
	}
	return image.Point{
		X: int(math.Round((kp.Point.X+0.5)/scale - 0.5)),
		Y: int(math.Round((kp.Point.Y+0.5)/scale - 0.5)),
	}
}

// KeyPointsToPoints returns the full resolution coordinates of the keypoints.
func KeyPointsToPoints(kps []KeyPoint) []r2.Point {
	pts := make([]r2.Point, len(kps))
	for i, kp := range kps {
		pts[i] = kp.Point
	}
	return pts
}

// FeatureExtractor detects keypoints and describes them.
type FeatureExtractor interface {
	Detect(img *image.Gray) ([]KeyPoint, error)
	Extract(img *image.Gray, kps []KeyPoint) (Descriptors, error)
}

// Features are index aligned keypoints and descriptors.
type Features struct {
	KeyPoints   []KeyPoint
	Descriptors Descriptors
}

// Len returns the number of features.
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.KeyPoints)
}

// rescalePoint maps a pixel of a layer downscaled by scale back to full resolution, pixel centers
// aligned.
func rescalePoint(p image.Point, scale float64) r2.Point {
	return r2.Point{
		X: (float64(p.X)+0.5)*scale - 0.5,
		Y: (float64(p.Y)+0.5)*scale - 0.5,
	}
}

// sortKeyPoints orders keypoints by octave, then strongest response first, then y, then x.
func sortKeyPoints(kps []KeyPoint) {
	slices.SortStableFunc(kps, func(a, b KeyPoint) int {
		if c := cmp.Compare(a.Octave, b.Octave); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Response, a.Response); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Point.Y, b.Point.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Point.X, b.Point.X)
	})
}

// orientationRadius is the radius of the circular patch used for the intensity centroid.
const orientationRadius = 15

// computeMaskOrientationFAST creates the mask used to compute orientations of corners. Entry i
// is the half width of row i of the circular patch.
func computeMaskOrientationFAST() []int {
	return []int{15, 15, 15, 15, 14, 14, 14, 13, 13, 12, 11, 10, 9, 8, 6, 3}
}

// computeKeypointOrientation returns atan2(m01, m10) of the intensity centroid of the circular
// patch around p. The patch must lie inside img.
func computeKeypointOrientation(img *image.Gray, p image.Point, umax []int) float64 {
	m01, m10 := 0, 0
	for dy := -orientationRadius; dy <= orientationRadius; dy++ {
		half := umax[utils.AbsInt(dy)]
		row := img.Pix[(p.Y+dy)*img.Stride:]
		sumRow := 0
		for dx := -half; dx <= half; dx++ {
			pixVal := int(row[p.X+dx])
			m10 += pixVal * dx
			sumRow += pixVal
		}
		m01 += sumRow * dy
	}
	return math.Atan2(float64(m01), float64(m10))
}
