package transform

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/artrack/logging"
	"go.viam.com/artrack/utils"
)

// Nominal camera parameters, used until the camera reports its own.
const (
	DefaultVerticalFOV   = 43.6
	DefaultHorizontalFOV = 65.4
	DefaultWidth         = 640
	DefaultHeight        = 480
	DefaultNear          = 1.
	DefaultFar           = 10000.
)

// CameraParameters describes the camera both for the render frustum and for the vision intrinsics.
// Fields of view are in degrees.
type CameraParameters struct {
	VerticalFOV   float64 `json:"vertical_fov_deg"`
	HorizontalFOV float64 `json:"horizontal_fov_deg"`
	Width         int     `json:"width_px"`
	Height        int     `json:"height_px"`
	Near          float64 `json:"near"`
	Far           float64 `json:"far"`
}

// DefaultCameraParameters returns the nominal parameters.
func DefaultCameraParameters() CameraParameters {
	return CameraParameters{
		VerticalFOV:   DefaultVerticalFOV,
		HorizontalFOV: DefaultHorizontalFOV,
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		Near:          DefaultNear,
		Far:           DefaultFar,
	}
}

// Validate checks the parameters describe a usable camera.
func (p CameraParameters) Validate() error {
	if p.VerticalFOV <= 0 || p.VerticalFOV >= 180 {
		return errors.Errorf("vertical field of view should be in (0, 180) degrees, got %v", p.VerticalFOV)
	}
	if p.HorizontalFOV <= 0 || p.HorizontalFOV >= 180 {
		return errors.Errorf("horizontal field of view should be in (0, 180) degrees, got %v", p.HorizontalFOV)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return errors.Errorf("image size should be positive, got %dx%d", p.Width, p.Height)
	}
	if p.Near <= 0 || p.Far <= p.Near {
		return errors.Errorf("clip planes should satisfy 0 < near < far, got near=%v far=%v", p.Near, p.Far)
	}
	return nil
}

// DirtyState tells which derived matrices of a CameraProjection are out of date.
type DirtyState int

const (
	// Clean means both matrices match the parameters.
	Clean DirtyState = iota
	// NeedsFrustum means only the render frustum is stale.
	NeedsFrustum
	// NeedsIntrinsics means only the vision intrinsics are stale.
	NeedsIntrinsics
	// NeedsBoth means both are stale.
	NeedsBoth
)

func (d DirtyState) withFrustum() DirtyState {
	switch d {
	case Clean, NeedsFrustum:
		return NeedsFrustum
	case NeedsIntrinsics, NeedsBoth:
		return NeedsBoth
	}
	return NeedsBoth
}

func (d DirtyState) frustumStale() bool {
	return d == NeedsFrustum || d == NeedsBoth
}

func (d DirtyState) intrinsicsStale() bool {
	return d == NeedsIntrinsics || d == NeedsBoth
}

// CameraProjection keeps the render frustum and the pinhole intrinsics consistent with a single
// set of camera parameters. Derived matrices are recomputed lazily on read.
type CameraProjection struct {
	mu         sync.Mutex
	params     CameraParameters
	dirty      DirtyState
	frustum    mgl64.Mat4
	intrinsics PinholeCameraIntrinsics
	logger     logging.Logger
}

// NewCameraProjection returns a projection with the nominal parameters.
func NewCameraProjection(logger logging.Logger) *CameraProjection {
	return &CameraProjection{params: DefaultCameraParameters(), dirty: NeedsBoth, logger: logger}
}

// SetIntrinsics overwrites the fields of view and the image size. Both derived matrices go stale.
// Invalid values are kept but logged, the solver then refuses the intrinsics and tracking holds.
func (cp *CameraProjection) SetIntrinsics(verticalFOV, horizontalFOV float64, widthPx, heightPx int) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.params.VerticalFOV = verticalFOV
	cp.params.HorizontalFOV = horizontalFOV
	cp.params.Width = widthPx
	cp.params.Height = heightPx
	cp.dirty = NeedsBoth
	cp.warnIfInvalid()
}

// SetClipPlanes overwrites the near and far planes. Only the frustum goes stale.
func (cp *CameraProjection) SetClipPlanes(near, far float64) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.params.Near = near
	cp.params.Far = far
	cp.dirty = cp.dirty.withFrustum()
	cp.warnIfInvalid()
}

// warnIfInvalid logs parameters that cannot describe a camera. Must hold mu.
func (cp *CameraProjection) warnIfInvalid() {
	if err := cp.params.Validate(); err != nil && cp.logger != nil {
		cp.logger.Warnw("camera parameters are invalid, projections will be degenerate", "error", err)
	}
}

// SetCameraParameters replaces all parameters at once.
func (cp *CameraProjection) SetCameraParameters(p CameraParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.params = p
	cp.dirty = NeedsBoth
	return nil
}

// Parameters returns the current parameters.
func (cp *CameraProjection) Parameters() CameraParameters {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.params
}

// Dirty reports which derived matrices will be recomputed on the next read.
func (cp *CameraProjection) Dirty() DirtyState {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.dirty
}

// RenderProjection returns the symmetric OpenGL frustum matching the fields of view.
func (cp *CameraProjection) RenderProjection() mgl64.Mat4 {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.refresh()
	return cp.frustum
}

// PinholeIntrinsics returns a copy of the vision intrinsics.
func (cp *CameraProjection) PinholeIntrinsics() PinholeCameraIntrinsics {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.refresh()
	return cp.intrinsics
}

// VisionIntrinsics returns a fresh 3x3 camera matrix.
func (cp *CameraProjection) VisionIntrinsics() *mat.Dense {
	intrinsics := cp.PinholeIntrinsics()
	return intrinsics.GetCameraMatrix()
}

// ProjectionSnapshot holds parameters and matrices computed together.
type ProjectionSnapshot struct {
	Params     CameraParameters
	Frustum    mgl64.Mat4
	Intrinsics PinholeCameraIntrinsics
}

// Snapshot returns the parameters and both derived matrices read under a single lock.
func (cp *CameraProjection) Snapshot() ProjectionSnapshot {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.refresh()
	return ProjectionSnapshot{Params: cp.params, Frustum: cp.frustum, Intrinsics: cp.intrinsics}
}

// refresh recomputes stale matrices. Must hold mu.
func (cp *CameraProjection) refresh() {
	if cp.dirty.frustumStale() {
		cp.frustum = FrustumFromParameters(cp.params)
	}
	if cp.dirty.intrinsicsStale() {
		cp.intrinsics = IntrinsicsFromParameters(cp.params)
	}
	cp.dirty = Clean
}

// FrustumFromParameters builds the symmetric frustum with top = tan(fovY/2)·near and
// right = tan(fovX/2)·near.
func FrustumFromParameters(p CameraParameters) mgl64.Mat4 {
	top := math.Tan(utils.DegToRad(p.VerticalFOV)/2) * p.Near
	right := math.Tan(utils.DegToRad(p.HorizontalFOV)/2) * p.Near
	return mgl64.Frustum(-right, right, -top, top, p.Near, p.Far)
}

// IntrinsicsFromParameters derives a single focal length from the diagonal field of view:
// focal = hypot(w, h) / (2·tan(hypot(fovX, fovY)/2)), principal point at the image center.
func IntrinsicsFromParameters(p CameraParameters) PinholeCameraIntrinsics {
	diagonalPx := math.Hypot(float64(p.Width), float64(p.Height))
	diagonalFOV := utils.DegToRad(math.Hypot(p.HorizontalFOV, p.VerticalFOV))
	focal := diagonalPx / (2 * math.Tan(0.5*diagonalFOV))
	return PinholeCameraIntrinsics{
		Width:  p.Width,
		Height: p.Height,
		Fx:     focal,
		Fy:     focal,
		Ppx:    0.5 * float64(p.Width),
		Ppy:    0.5 * float64(p.Height),
	}
}
