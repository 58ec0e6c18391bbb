package artracking

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/artrack/rimage"
	"go.viam.com/artrack/vision/keypoints"
)

// ErrNoReferenceFeatures is returned when no keypoint can be found on a reference target.
var ErrNoReferenceFeatures = errors.New("reference target has no features")

// ReferenceTarget is the planar image being tracked. Its plane is z = 0 and its units are pixels of
// the source image. It is not modified after construction.
type ReferenceTarget struct {
	Name     string
	Image    image.Image
	Gray     *image.Gray
	Features *keypoints.Features
	// Corners are (0,0), (w,0), (w,h), (0,h) in the target plane.
	Corners [4]r3.Vector
}

type featureComputer interface {
	DetectAndCompute(img *image.Gray) (*keypoints.Features, error)
}

// computeFeatures uses the single pass of the extractor when it has one.
func computeFeatures(extractor keypoints.FeatureExtractor, img *image.Gray) (*keypoints.Features, error) {
	if fc, ok := extractor.(featureComputer); ok {
		return fc.DetectAndCompute(img)
	}
	kps, err := extractor.Detect(img)
	if err != nil {
		return nil, err
	}
	descs, err := extractor.Extract(img, kps)
	if err != nil {
		return nil, err
	}
	return &keypoints.Features{KeyPoints: kps, Descriptors: descs}, nil
}

// NewReferenceTarget computes the features of img with the extractor that will also describe the
// scene frames.
func NewReferenceTarget(name string, img image.Image, extractor keypoints.FeatureExtractor) (*ReferenceTarget, error) {
	if extractor == nil {
		return nil, errors.New("a feature extractor is required")
	}
	if rimage.IsEmpty(img) {
		return nil, errors.Errorf("reference target %q has no pixels", name)
	}
	gray := rimage.ToGray(img)
	features, err := computeFeatures(extractor, gray)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot compute features of reference target %q", name)
	}
	if features.Len() == 0 {
		return nil, errors.Wrapf(ErrNoReferenceFeatures, "reference target %q", name)
	}
	w, h := float64(gray.Bounds().Dx()), float64(gray.Bounds().Dy())
	return &ReferenceTarget{
		Name:     name,
		Image:    img,
		Gray:     gray,
		Features: features,
		Corners:  [4]r3.Vector{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}},
	}, nil
}

// LoadReferenceTarget reads the target from an image file, named after the file.
func LoadReferenceTarget(path string, extractor keypoints.FeatureExtractor) (*ReferenceTarget, error) {
	img, err := rimage.ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewReferenceTarget(name, img, extractor)
}

// Size returns the width and height of the target in pixels.
func (rt *ReferenceTarget) Size() (int, int) {
	return rt.Gray.Bounds().Dx(), rt.Gray.Bounds().Dy()
}

// ObjectPoints lifts the given reference keypoints to the target plane.
func ObjectPoints(kps []keypoints.KeyPoint) []r3.Vector {
	pts := make([]r3.Vector, len(kps))
	for i, kp := range kps {
		pts[i] = r3.Vector{X: kp.Point.X, Y: kp.Point.Y}
	}
	return pts
}
