package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/artrack/spatialmath"
)

// ProjectPoints maps object points through the pose (rvec, tvec) and the intrinsics.
func ProjectPoints(object []r3.Vector, rvec, tvec r3.Vector, k *PinholeCameraIntrinsics) []r2.Point {
	rot := spatialmath.RotationVectorToMatrix(rvec)
	out := make([]r2.Point, len(object))
	for i, p := range object {
		out[i] = k.Project(rot.Apply(p).Add(tvec))
	}
	return out
}

// ReprojectionErrors returns, per correspondence, the pixel distance between the observed point
// and the projected object point.
func ReprojectionErrors(object []r3.Vector, imagePts []r2.Point, rvec, tvec r3.Vector, k *PinholeCameraIntrinsics) ([]float64, error) {
	if len(object) != len(imagePts) {
		return nil, errors.Errorf("got %d object points and %d image points", len(object), len(imagePts))
	}
	projected := ProjectPoints(object, rvec, tvec, k)
	errs := make([]float64, len(object))
	for i := range projected {
		errs[i] = projected[i].Sub(imagePts[i]).Norm()
	}
	return errs, nil
}

// ReprojectionStats summarizes reprojection errors in pixels.
type ReprojectionStats struct {
	Mean   float64
	Median float64
	RMS    float64
	Max    float64
}

// ComputeReprojectionStats summarizes a non empty set of errors.
func ComputeReprojectionStats(errs []float64) (ReprojectionStats, error) {
	data := stats.Float64Data(errs)
	mean, err := stats.Mean(data)
	if err != nil {
		return ReprojectionStats{}, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return ReprojectionStats{}, err
	}
	maxErr, err := stats.Max(data)
	if err != nil {
		return ReprojectionStats{}, err
	}
	squares := make(stats.Float64Data, len(errs))
	for i, e := range errs {
		squares[i] = e * e
	}
	meanSquare, err := stats.Mean(squares)
	if err != nil {
		return ReprojectionStats{}, err
	}
	return ReprojectionStats{Mean: mean, Median: median, RMS: math.Sqrt(meanSquare), Max: maxErr}, nil
}
