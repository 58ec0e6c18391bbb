// Package spatialmath converts between the rotation representations used by the pose estimator.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// See here for a thorough explanation: https://en.wikipedia.org/wiki/Axis%E2%80%93angle_representation
// An orientation can be expressed by an axis, a unit vector (rx, ry, rz), and a rotation theta around
// it (R4). Multiplying the unit axis by theta gives the R3 form, a vector whose length is the angle.
// The R3 form is what the pose solver calls a rotation vector.

// R4AA represents an R4 axis angle.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA creates the zero rotation around the z axis.
func NewR4AA() *R4AA {
	return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
}

// ToR3 converts an R4 angle axis to R3.
func (r4 *R4AA) ToR3() r3.Vector {
	return r3.Vector{X: r4.RX * r4.Theta, Y: r4.RY * r4.Theta, Z: r4.RZ * r4.Theta}
}

// ToQuat converts an R4 axis angle to a unit quaternion.
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/angleToQuaternion/index.htm
func (r4 *R4AA) ToQuat() quat.Number {
	if r4.Theta == 0 {
		return quat.Number{Real: 1}
	}
	sinA := math.Sin(r4.Theta / 2)
	axis := r4.axis()
	return quat.Number{
		Real: math.Cos(r4.Theta / 2),
		Imag: axis.X * sinA,
		Jmag: axis.Y * sinA,
		Kmag: axis.Z * sinA,
	}
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (r4 *R4AA) RotationMatrix() *RotationMatrix {
	return RotationVectorToMatrix(r4.ToR3())
}

func (r4 *R4AA) axis() r3.Vector {
	v := r3.Vector{X: r4.RX, Y: r4.RY, Z: r4.RZ}
	if n := v.Norm(); n > 0 {
		return v.Mul(1 / n)
	}
	return r3.Vector{Z: 1}
}

// R3ToR4 converts an R3 angle axis to R4. A zero vector maps to the zero rotation.
func R3ToR4(aa r3.Vector) *R4AA {
	theta := aa.Norm()
	if theta == 0 {
		return NewR4AA()
	}
	return &R4AA{theta, aa.X / theta, aa.Y / theta, aa.Z / theta}
}

// RotationVectorToMatrix converts a rotation vector to a rotation matrix with Rodrigues' formula
// R = I + sin(θ)K + (1 - cos(θ))K², K being the cross product matrix of the unit axis.
func RotationVectorToMatrix(rvec r3.Vector) *RotationMatrix {
	theta := rvec.Norm()
	if theta < 1e-12 {
		return Identity()
	}
	k := rvec.Mul(1 / theta)
	s, c := math.Sin(theta), math.Cos(theta)
	v := 1 - c
	return &RotationMatrix{mat: [9]float64{
		c + k.X*k.X*v, k.X*k.Y*v - k.Z*s, k.X*k.Z*v + k.Y*s,
		k.Y*k.X*v + k.Z*s, c + k.Y*k.Y*v, k.Y*k.Z*v - k.X*s,
		k.Z*k.X*v - k.Y*s, k.Z*k.Y*v + k.X*s, c + k.Z*k.Z*v,
	}}
}

// MatrixToRotationVector is the inverse of RotationVectorToMatrix. The returned angle is in [0, π].
// The angle comes from atan2 of sin and cos so it keeps full precision near 0 and near π.
func MatrixToRotationVector(rm *RotationMatrix) r3.Vector {
	m := rm.mat
	// the antisymmetric part is 2·sin(θ)·axis
	anti := r3.Vector{X: m[7] - m[5], Y: m[2] - m[6], Z: m[3] - m[1]}
	sinTheta := anti.Norm() / 2
	cosTheta := (m[0] + m[4] + m[8] - 1) / 2
	theta := math.Atan2(sinTheta, cosTheta)
	if theta < 1e-12 {
		return r3.Vector{}
	}
	if math.Pi-theta > 1e-3 {
		return anti.Mul(theta / (2 * sinTheta))
	}
	// near π the antisymmetric part vanishes, read the axis off the symmetric part instead and
	// take its sign from what is left of the antisymmetric part.
	xx := math.Sqrt(math.Max(0, (m[0]-cosTheta)/(1-cosTheta)))
	yy := math.Sqrt(math.Max(0, (m[4]-cosTheta)/(1-cosTheta)))
	zz := math.Sqrt(math.Max(0, (m[8]-cosTheta)/(1-cosTheta)))
	var axis r3.Vector
	switch {
	case xx >= yy && xx >= zz:
		axis = r3.Vector{X: xx, Y: (m[1] + m[3]) / (2 * (1 - cosTheta) * xx), Z: (m[2] + m[6]) / (2 * (1 - cosTheta) * xx)}
	case yy >= zz:
		axis = r3.Vector{X: (m[1] + m[3]) / (2 * (1 - cosTheta) * yy), Y: yy, Z: (m[5] + m[7]) / (2 * (1 - cosTheta) * yy)}
	default:
		axis = r3.Vector{X: (m[2] + m[6]) / (2 * (1 - cosTheta) * zz), Y: (m[5] + m[7]) / (2 * (1 - cosTheta) * zz), Z: zz}
	}
	if axis.Dot(anti) < 0 {
		axis = axis.Mul(-1)
	}
	return axis.Normalize().Mul(theta)
}
