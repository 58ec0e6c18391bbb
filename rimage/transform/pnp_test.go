package transform

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/artrack/spatialmath"
)

func defaultIntrinsics() *PinholeCameraIntrinsics {
	k := IntrinsicsFromParameters(DefaultCameraParameters())
	return &k
}

func planeGrid(w, h float64, n int) []r3.Vector {
	pts := make([]r3.Vector, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pts = append(pts, r3.Vector{X: w * float64(i) / float64(n-1), Y: h * float64(j) / float64(n-1)})
		}
	}
	return pts
}

func TestSolvePlanarPnPRoundTrip(t *testing.T) {
	k := defaultIntrinsics()
	object := planeGrid(200, 150, 5)
	rvec := r3.Vector{X: 0.1, Y: -0.2, Z: 0.05}
	tvec := r3.Vector{X: -50, Y: 30, Z: 600}
	imagePts := ProjectPoints(object, rvec, tvec, k)

	sol, err := SolvePlanarPnP(object, imagePts, k)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.RVec.X, test.ShouldAlmostEqual, rvec.X, 1e-6)
	test.That(t, sol.RVec.Y, test.ShouldAlmostEqual, rvec.Y, 1e-6)
	test.That(t, sol.RVec.Z, test.ShouldAlmostEqual, rvec.Z, 1e-6)
	test.That(t, sol.TVec.X, test.ShouldAlmostEqual, tvec.X, 1e-4)
	test.That(t, sol.TVec.Y, test.ShouldAlmostEqual, tvec.Y, 1e-4)
	test.That(t, sol.TVec.Z, test.ShouldAlmostEqual, tvec.Z, 1e-4)
	test.That(t, sol.RMS, test.ShouldBeLessThan, 1e-6)
	test.That(t, sol.Rotation.IsRotation(1e-9), test.ShouldBeTrue)
}

func TestSolvePlanarPnPSquare(t *testing.T) {
	k := defaultIntrinsics()
	object := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 0, Z: 0}, {X: 100, Y: 100, Z: 0}, {X: 0, Y: 100, Z: 0}}
	// the square seen head on at a depth equal to the focal length keeps its pixel size
	offset := r2.Point{X: 224, Y: 144}
	imagePts := make([]r2.Point, len(object))
	for i, p := range object {
		imagePts[i] = r2.Point{X: p.X, Y: p.Y}.Add(offset)
	}

	sol, err := SolvePlanarPnP(object, imagePts, k)
	test.That(t, err, test.ShouldBeNil)
	rot := sol.Rotation
	id := spatialmath.Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, rot.At(i, j), test.ShouldAlmostEqual, id.At(i, j), 1e-6)
		}
	}
	test.That(t, sol.TVec.X, test.ShouldAlmostEqual, offset.X-k.Ppx, 1e-4)
	test.That(t, sol.TVec.Y, test.ShouldAlmostEqual, offset.Y-k.Ppy, 1e-4)
	test.That(t, sol.TVec.Z, test.ShouldAlmostEqual, k.Fx, 1e-4)
}

func TestSolvePlanarPnPNoise(t *testing.T) {
	k := defaultIntrinsics()
	object := planeGrid(300, 300, 7)
	rvec := r3.Vector{X: -0.3, Y: 0.25, Z: 0.6}
	tvec := r3.Vector{X: -150, Y: -100, Z: 900}
	imagePts := ProjectPoints(object, rvec, tvec, k)
	rng := rand.New(rand.NewSource(11))
	for i := range imagePts {
		imagePts[i] = imagePts[i].Add(r2.Point{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5})
	}

	sol, err := SolvePlanarPnP(object, imagePts, k)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.RVec.Sub(rvec).Norm(), test.ShouldBeLessThan, 0.02)
	test.That(t, sol.TVec.Sub(tvec).Norm()/tvec.Norm(), test.ShouldBeLessThan, 0.02)
	test.That(t, sol.RMS, test.ShouldBeLessThan, 1)

	errs, err := ReprojectionErrors(object, imagePts, sol.RVec, sol.TVec, k)
	test.That(t, err, test.ShouldBeNil)
	stats, err := ComputeReprojectionStats(errs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.RMS, test.ShouldAlmostEqual, sol.RMS, 1e-9)
	test.That(t, stats.Max, test.ShouldBeLessThan, 1)
}

func TestSolvePlanarPnPErrors(t *testing.T) {
	k := defaultIntrinsics()
	object := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 0, Z: 0}, {X: 100, Y: 100, Z: 0}}
	imagePts := []r2.Point{{X: 10, Y: 10}, {X: 110, Y: 10}, {X: 110, Y: 110}}
	_, err := SolvePlanarPnP(object, imagePts, k)
	test.That(t, errors.Is(err, ErrTooFewPoints), test.ShouldBeTrue)

	_, err = SolvePlanarPnP(object, imagePts[:2], k)
	test.That(t, err, test.ShouldNotBeNil)

	line := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 10, Z: 0}, {X: 20, Y: 20, Z: 0}, {X: 30, Y: 30, Z: 0}}
	linePx := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}}
	_, err = SolvePlanarPnP(line, linePx, k)
	test.That(t, errors.Is(err, ErrDegenerateConfiguration), test.ShouldBeTrue)

	bumpy := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 0, Z: 5}, {X: 100, Y: 100, Z: 0}, {X: 0, Y: 100, Z: 0}}
	square := []r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	_, err = SolvePlanarPnP(bumpy, square, k)
	test.That(t, errors.Is(err, ErrNotPlanar), test.ShouldBeTrue)

	_, err = SolvePlanarPnP(planeGrid(10, 10, 2), square, &PinholeCameraIntrinsics{})
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)

	// all the image points on one pixel
	same := []r2.Point{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}}
	_, err = SolvePlanarPnP(planeGrid(10, 10, 2), same, k)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReprojectionStats(t *testing.T) {
	s, err := ComputeReprojectionStats([]float64{3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Mean, test.ShouldAlmostEqual, 3.5)
	test.That(t, s.Median, test.ShouldAlmostEqual, 3.5)
	test.That(t, s.RMS, test.ShouldAlmostEqual, math.Sqrt(12.5))
	test.That(t, s.Max, test.ShouldEqual, 4.)

	_, err = ComputeReprojectionStats(nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReprojectionErrors([]r3.Vector{{}}, nil, r3.Vector{}, r3.Vector{Z: 1}, defaultIntrinsics())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPinholeIntrinsics(t *testing.T) {
	k := defaultIntrinsics()
	test.That(t, k.CheckValid(), test.ShouldBeNil)
	var nilK *PinholeCameraIntrinsics
	test.That(t, nilK.CheckValid(), test.ShouldNotBeNil)
	test.That(t, (&PinholeCameraIntrinsics{Width: 10, Height: 10, Fx: 0, Fy: 1}).CheckValid(), test.ShouldNotBeNil)

	x, y, z := k.PixelToPoint(400, 300, 2)
	u, v := k.PointToPixel(x, y, z)
	test.That(t, u, test.ShouldAlmostEqual, 400)
	test.That(t, v, test.ShouldAlmostEqual, 300)
	u, v = k.PointToPixel(1, 1, 0)
	test.That(t, u, test.ShouldEqual, -1.)
	test.That(t, v, test.ShouldEqual, -1.)

	back, err := NewPinholeCameraIntrinsicsFromMatrix(k.GetCameraMatrix(), k.Width, k.Height)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back, test.ShouldResemble, k)
}
