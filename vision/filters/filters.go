// Package filters transforms camera frames before display. A filter returns either plain pixels or
// pixels together with the pose of a tracked target.
package filters

import (
	"context"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/artrack/logging"
	"go.viam.com/artrack/rimage"
	"go.viam.com/artrack/vision/artracking"
)

// Result is the output of a filter: a PixelResult or an ARResult.
type Result interface {
	Image() image.Image
	isResult()
}

// PixelResult only carries pixels.
type PixelResult struct {
	Frame image.Image
}

// Image returns the frame.
func (r PixelResult) Image() image.Image { return r.Frame }

func (PixelResult) isResult() {}

// ARResult carries pixels and, when the target is tracked, the pose to draw at.
type ARResult struct {
	Frame image.Image
	Pose  *artracking.Pose
}

// Image returns the frame.
func (r ARResult) Image() image.Image { return r.Frame }

func (ARResult) isResult() {}

// Filter processes one frame.
type Filter interface {
	Apply(ctx context.Context, src image.Image) (Result, error)
}

// NoneFilter passes frames through.
type NoneFilter struct{}

// Apply returns src unchanged.
func (NoneFilter) Apply(ctx context.Context, src image.Image) (Result, error) {
	return PixelResult{Frame: src}, nil
}

// NoneARFilter passes frames through with no pose, for a renderer expecting AR results.
type NoneARFilter struct{}

// Apply returns src unchanged.
func (NoneARFilter) Apply(ctx context.Context, src image.Image) (Result, error) {
	return ARResult{Frame: src}, nil
}

// ImageDetectionFilter tracks a reference target in the frames. While the target is not tracked,
// a thumbnail of it is drawn in the upper left corner as a hint of what to look for.
type ImageDetectionFilter struct {
	estimator *artracking.PoseEstimator
	logger    logging.Logger
}

// NewImageDetectionFilter wraps an estimator.
func NewImageDetectionFilter(estimator *artracking.PoseEstimator, logger logging.Logger) (*ImageDetectionFilter, error) {
	if estimator == nil {
		return nil, errors.New("image detection filter needs a pose estimator")
	}
	return &ImageDetectionFilter{estimator: estimator, logger: logger}, nil
}

// Estimator returns the wrapped estimator.
func (f *ImageDetectionFilter) Estimator() *artracking.PoseEstimator {
	return f.estimator
}

// Apply runs the estimator on src.
func (f *ImageDetectionFilter) Apply(ctx context.Context, src image.Image) (Result, error) {
	if rimage.IsEmpty(src) {
		f.logger.Debug("empty frame, nothing to track")
		if src == nil {
			return ARResult{}, nil
		}
		return ARResult{Frame: DrawTargetHint(src, f.estimator.Target().Image)}, nil
	}
	res := f.estimator.ProcessFrame(ctx, rimage.ToGray(src))
	if res.Pose != nil {
		return ARResult{Frame: src, Pose: res.Pose}, nil
	}
	return ARResult{Frame: DrawTargetHint(src, f.estimator.Target().Image)}, nil
}

// DrawTargetHint returns a copy of frame with the target drawn in its upper left corner. The longer
// side of the target is resized to half of the smaller frame dimension, keeping its aspect ratio.
func DrawTargetHint(frame, target image.Image) image.Image {
	fb := frame.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, fb.Dx(), fb.Dy()))
	draw.Draw(out, out.Bounds(), frame, fb.Min, draw.Src)
	if rimage.IsEmpty(target) {
		return out
	}
	maxSize := fb.Dx()
	if fb.Dy() < maxSize {
		maxSize = fb.Dy()
	}
	maxSize /= 2
	tb := target.Bounds()
	aspect := float64(tb.Dx()) / float64(tb.Dy())
	width, height := maxSize, int(float64(maxSize)/aspect)
	if tb.Dy() > tb.Dx() {
		width, height = int(float64(maxSize)*aspect), maxSize
	}
	if width == 0 || height == 0 {
		return out
	}
	thumb := imaging.Resize(target, width, height, imaging.Lanczos)
	return imaging.Paste(out, thumb, image.Point{})
}
