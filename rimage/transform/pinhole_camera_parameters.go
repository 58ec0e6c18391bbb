package transform

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is wrapped by every intrinsics validation failure.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

func newNoIntrinsicsError(format string, args ...interface{}) error {
	return errors.Wrap(ErrNoIntrinsics, fmt.Sprintf(format, args...))
}

// PinholeCameraIntrinsics is the distortion free camera matrix K of the vision pipeline, in pixels.
// Image y points down and the camera looks along +z.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	switch {
	case params == nil:
		return newNoIntrinsicsError("intrinsics do not exist")
	case params.Width <= 0 || params.Height <= 0:
		return newNoIntrinsicsError("invalid size (%d, %d)", params.Width, params.Height)
	case params.Fx <= 0 || params.Fy <= 0:
		return newNoIntrinsicsError("invalid focal length (%g, %g)", params.Fx, params.Fy)
	case params.Ppx < 0 || params.Ppy < 0:
		return newNoIntrinsicsError("invalid principal point (%g, %g)", params.Ppx, params.Ppy)
	}
	return nil
}

// GetCameraMatrix returns K = [[fx 0 ppx] [0 fy ppy] [0 0 1]].
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		params.Fx, 0, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	})
}

// NewPinholeCameraIntrinsicsFromMatrix reads fx, fy, ppx and ppy off a 3x3 camera matrix.
func NewPinholeCameraIntrinsicsFromMatrix(k mat.Matrix, width, height int) (*PinholeCameraIntrinsics, error) {
	r, c := k.Dims()
	if r != 3 || c != 3 {
		return nil, errors.Errorf("camera matrix must be 3x3, got %dx%d", r, c)
	}
	params := &PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     k.At(0, 0),
		Fy:     k.At(1, 1),
		Ppx:    k.At(0, 2),
		Ppy:    k.At(1, 2),
	}
	return params, params.CheckValid()
}

// PixelToPoint back projects pixel (x, y) to the camera frame point at depth z.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	if params == nil {
		return 0, 0, 0
	}
	return (x - params.Ppx) / params.Fx * z, (y - params.Ppy) / params.Fy * z, z
}

// PointToPixel projects a camera frame point. Points at z = 0 map to (-1, -1), outside any image.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z == 0 {
		return -1, -1
	}
	return x/z*params.Fx + params.Ppx, y/z*params.Fy + params.Ppy
}

// Project is PointToPixel on vectors.
func (params *PinholeCameraIntrinsics) Project(pt r3.Vector) r2.Point {
	x, y := params.PointToPixel(pt.X, pt.Y, pt.Z)
	return r2.Point{X: x, Y: y}
}

// Normalize maps a pixel to the z = 1 plane of the camera.
func (params *PinholeCameraIntrinsics) Normalize(px r2.Point) r2.Point {
	x, y, _ := params.PixelToPoint(px.X, px.Y, 1)
	return r2.Point{X: x, Y: y}
}
