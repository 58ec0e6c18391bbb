package artracking

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/artrack/spatialmath"
)

// Pose places the reference target in front of the camera.
//
// RVec and TVec are the rotation vector and translation in the vision camera frame (x right,
// y down, z forward) as returned by the solver. Render is the same transform in the render camera
// frame (x right, y up, z backward), column major with the translation in column 3.
type Pose struct {
	Render mgl64.Mat4
	RVec   r3.Vector
	TVec   r3.Vector
}

// NewPoseFromVision converts a vision frame pose to the render frame. Flipping y and z is a
// rotation of pi about x, so it is applied to the rotation vector directly.
func NewPoseFromVision(rvec, tvec r3.Vector) Pose {
	corrected := r3.Vector{X: rvec.X, Y: -rvec.Y, Z: -rvec.Z}
	rot := spatialmath.R3ToR4(corrected).RotationMatrix()
	var m mgl64.Mat4
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Set(row, col, rot.At(row, col))
		}
	}
	m.Set(0, 3, tvec.X)
	m.Set(1, 3, -tvec.Y)
	m.Set(2, 3, -tvec.Z)
	m.Set(3, 3, 1)
	return Pose{Render: m, RVec: rvec, TVec: tvec}
}

// Translation returns the render frame translation.
func (p Pose) Translation() mgl64.Vec3 {
	return p.Render.Col(3).Vec3()
}

// Rotation returns the render frame rotation.
func (p Pose) Rotation() mgl64.Mat3 {
	return p.Render.Mat3()
}

// Quaternion returns the render frame rotation as a unit quaternion.
func (p Pose) Quaternion() quat.Number {
	return spatialmath.R3ToR4(r3.Vector{X: p.RVec.X, Y: -p.RVec.Y, Z: -p.RVec.Z}).ToQuat()
}
