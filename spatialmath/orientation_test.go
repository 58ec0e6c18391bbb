package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	aa45x = &R4AA{th, 1., 0., 0.}
	rm45x = &RotationMatrix{mat: [9]float64{
		1, 0, 0,
		0, math.Cos(th), -math.Sin(th),
		0, math.Sin(th), math.Cos(th),
	}}
)

func assertRotationEqual(t *testing.T, actual, expected *RotationMatrix) {
	t.Helper()
	for i := range actual.mat {
		test.That(t, actual.mat[i], test.ShouldAlmostEqual, expected.mat[i], 1e-9)
	}
}

// assertQuatRotates checks that q·v·q* matches the matrix rotation of v.
func assertQuatRotates(t *testing.T, q quat.Number, rm *RotationMatrix) {
	t.Helper()
	test.That(t, quat.Abs(q), test.ShouldAlmostEqual, 1, 1e-12)
	for _, v := range []r3.Vector{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0.4, Y: -1.1, Z: 0.7}} {
		got := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
		want := rm.Apply(v)
		test.That(t, got.Real, test.ShouldAlmostEqual, 0, 1e-12)
		test.That(t, got.Imag, test.ShouldAlmostEqual, want.X, 1e-9)
		test.That(t, got.Jmag, test.ShouldAlmostEqual, want.Y, 1e-9)
		test.That(t, got.Kmag, test.ShouldAlmostEqual, want.Z, 1e-9)
	}
}

func TestZeroRotation(t *testing.T) {
	test.That(t, R3ToR4(r3.Vector{}), test.ShouldResemble, NewR4AA())
	assertRotationEqual(t, RotationVectorToMatrix(r3.Vector{}), Identity())
	test.That(t, MatrixToRotationVector(Identity()), test.ShouldResemble, r3.Vector{})
	test.That(t, NewR4AA().ToQuat(), test.ShouldResemble, quat.Number{Real: 1})
}

func TestRepresentations(t *testing.T) {
	assertRotationEqual(t, aa45x.RotationMatrix(), rm45x)

	q := aa45x.ToQuat()
	test.That(t, q.Real, test.ShouldAlmostEqual, q45x.Real)
	test.That(t, q.Imag, test.ShouldAlmostEqual, q45x.Imag)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, 0)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, 0)

	rvec := MatrixToRotationVector(rm45x)
	test.That(t, rvec.X, test.ShouldAlmostEqual, th)
	test.That(t, rvec.Y, test.ShouldAlmostEqual, 0)
	test.That(t, rvec.Z, test.ShouldAlmostEqual, 0)
	assertQuatRotates(t, R3ToR4(rvec).ToQuat(), rm45x)
}

func TestRodriguesRoundTrip(t *testing.T) {
	for _, rvec := range []r3.Vector{
		{X: 0.1, Y: -0.2, Z: 0.3},
		{X: -1.2, Y: 0.4, Z: 0.05},
		{X: 0, Y: 0, Z: 3},
		{X: 0, Y: math.Pi, Z: 0},
		{X: math.Pi / math.Sqrt(2), Y: math.Pi / math.Sqrt(2), Z: 0},
		{X: 0, Y: 0, Z: math.Pi - 1e-4},
		{X: 0.3, Y: -2.9, Z: 0.2},
	} {
		rm := RotationVectorToMatrix(rvec)
		test.That(t, rm.IsRotation(1e-9), test.ShouldBeTrue)
		back := MatrixToRotationVector(rm)
		// at exactly π the sign of the axis is ambiguous, compare matrices instead
		assertRotationEqual(t, RotationVectorToMatrix(back), rm)
		test.That(t, back.Norm(), test.ShouldAlmostEqual, rvec.Norm(), 1e-12)
		if rvec.Norm() < math.Pi-1e-9 {
			test.That(t, back.X, test.ShouldAlmostEqual, rvec.X, 1e-9)
			test.That(t, back.Y, test.ShouldAlmostEqual, rvec.Y, 1e-9)
			test.That(t, back.Z, test.ShouldAlmostEqual, rvec.Z, 1e-9)
		}
		assertQuatRotates(t, R3ToR4(rvec).ToQuat(), rm)
		assertRotationEqual(t, R3ToR4(rvec).RotationMatrix(), rm)
	}
}

func TestRotationMatrixOps(t *testing.T) {
	_, err := NewRotationMatrix([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)

	rm := RotationVectorToMatrix(r3.Vector{X: 0, Y: 0, Z: math.Pi / 2})
	v := rm.Apply(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, v.X, test.ShouldAlmostEqual, 0)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1)
	assertRotationEqual(t, rm.Mul(rm.Transpose()), Identity())
	test.That(t, rm.Det(), test.ShouldAlmostEqual, 1)
	test.That(t, rm.Col(0), test.ShouldResemble, r3.Vector{X: rm.At(0, 0), Y: rm.At(1, 0), Z: rm.At(2, 0)})

	dense := rm.Dense()
	back, err := RotationMatrixFromDense(dense)
	test.That(t, err, test.ShouldBeNil)
	assertRotationEqual(t, back, rm)
	_, err = RotationMatrixFromDense(mat.NewDense(2, 2, nil))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestOrthonormalize(t *testing.T) {
	noisy := rm45x.Dense()
	noisy.Set(0, 1, 0.01)
	noisy.Set(2, 2, noisy.At(2, 2)*1.05)
	fixed, err := Orthonormalize(noisy)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fixed.IsRotation(1e-9), test.ShouldBeTrue)
	test.That(t, fixed.At(1, 1), test.ShouldAlmostEqual, rm45x.At(1, 1), 0.05)

	// a reflection is mapped back to a proper rotation
	reflection := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, -1})
	fixed, err = Orthonormalize(reflection)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fixed.Det(), test.ShouldAlmostEqual, 1)
}
