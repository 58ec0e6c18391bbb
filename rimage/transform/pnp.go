package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/artrack/spatialmath"
)

var (
	// ErrTooFewPoints is returned when fewer than 4 correspondences are given.
	ErrTooFewPoints = errors.New("not enough correspondences")
	// ErrDegenerateConfiguration is returned when the points are collinear or coincident.
	ErrDegenerateConfiguration = errors.New("degenerate point configuration")
	// ErrNotPlanar is returned when the object points do not lie on the z = 0 plane.
	ErrNotPlanar = errors.New("object points are not on the z = 0 plane")
	// ErrSolverDiverged is returned when the solution is not finite or the target ends up behind the camera.
	ErrSolverDiverged = errors.New("pose solver diverged")
)

// PnPSolution is the pose of the object frame in the camera frame: x_cam = R·x_obj + t.
type PnPSolution struct {
	RVec       r3.Vector
	TVec       r3.Vector
	Rotation   *spatialmath.RotationMatrix
	RMS        float64
	Iterations int
}

const (
	pnpMaxIterations = 50
	pnpMinPoints     = 4
)

// SolvePlanarPnP recovers the pose of a planar object from at least 4 correspondences between
// object points on z = 0 and undistorted pixels. The pose is initialized from the homography
// between the plane and the normalized image, then refined with Levenberg-Marquardt on the
// reprojection error.
func SolvePlanarPnP(object []r3.Vector, imagePts []r2.Point, k *PinholeCameraIntrinsics) (*PnPSolution, error) {
	if len(object) != len(imagePts) {
		return nil, errors.Errorf("got %d object points and %d image points", len(object), len(imagePts))
	}
	if len(object) < pnpMinPoints {
		return nil, errors.Wrapf(ErrTooFewPoints, "need %d, got %d", pnpMinPoints, len(object))
	}
	if err := k.CheckValid(); err != nil {
		return nil, err
	}
	planar := make([]r2.Point, len(object))
	extent := 0.
	for i, p := range object {
		planar[i] = r2.Point{X: p.X, Y: p.Y}
		extent = math.Max(extent, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	for _, p := range object {
		if math.Abs(p.Z) > 1e-9*math.Max(1, extent) {
			return nil, ErrNotPlanar
		}
	}
	normalized := make([]r2.Point, len(imagePts))
	for i, px := range imagePts {
		normalized[i] = k.Normalize(px)
	}

	rvec, tvec, err := planarPoseFromHomography(planar, normalized)
	if err != nil {
		return nil, err
	}
	sol := refinePoseLM(object, imagePts, k, rvec, tvec)
	for _, v := range []float64{sol.RVec.X, sol.RVec.Y, sol.RVec.Z, sol.TVec.X, sol.TVec.Y, sol.TVec.Z, sol.RMS} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrSolverDiverged
		}
	}
	if sol.TVec.Z <= 0 {
		return nil, errors.Wrap(ErrSolverDiverged, "target is behind the camera")
	}
	return sol, nil
}

// planarPoseFromHomography decomposes H ~ [r1 r2 t] into a rotation vector and translation.
func planarPoseFromHomography(planar, normalized []r2.Point) (r3.Vector, r3.Vector, error) {
	h, err := EstimateHomography(planar, normalized)
	if err != nil {
		return r3.Vector{}, r3.Vector{}, err
	}
	h1 := r3.Vector{X: h.At(0, 0), Y: h.At(1, 0), Z: h.At(2, 0)}
	h2 := r3.Vector{X: h.At(0, 1), Y: h.At(1, 1), Z: h.At(2, 1)}
	h3 := r3.Vector{X: h.At(0, 2), Y: h.At(1, 2), Z: h.At(2, 2)}
	norm := (h1.Norm() + h2.Norm()) / 2
	if norm < 1e-12 {
		return r3.Vector{}, r3.Vector{}, ErrDegenerateConfiguration
	}
	lambda := 1 / norm
	// the plane has to be in front of the camera
	if h3.Z < 0 {
		lambda = -lambda
	}
	r1, r2v := h1.Mul(lambda), h2.Mul(lambda)
	r3v := r1.Cross(r2v)
	m := mat.NewDense(3, 3, []float64{
		r1.X, r2v.X, r3v.X,
		r1.Y, r2v.Y, r3v.Y,
		r1.Z, r2v.Z, r3v.Z,
	})
	rot, err := spatialmath.Orthonormalize(m)
	if err != nil {
		return r3.Vector{}, r3.Vector{}, errors.Wrap(ErrDegenerateConfiguration, err.Error())
	}
	return spatialmath.MatrixToRotationVector(rot), h3.Mul(lambda), nil
}

// pnpResiduals writes the reprojection residuals of the pose params = (rvec, tvec) into out.
func pnpResiduals(params []float64, object []r3.Vector, imagePts []r2.Point, k *PinholeCameraIntrinsics, out []float64) {
	rot := spatialmath.RotationVectorToMatrix(r3.Vector{X: params[0], Y: params[1], Z: params[2]})
	t := r3.Vector{X: params[3], Y: params[4], Z: params[5]}
	for i, p := range object {
		proj := k.Project(rot.Apply(p).Add(t))
		out[2*i] = proj.X - imagePts[i].X
		out[2*i+1] = proj.Y - imagePts[i].Y
	}
}

func sumSquares(v []float64) float64 {
	s := 0.
	for _, x := range v {
		s += x * x
	}
	return s
}

// refinePoseLM minimizes the squared reprojection error with a numerically differentiated
// Levenberg-Marquardt.
func refinePoseLM(object []r3.Vector, imagePts []r2.Point, k *PinholeCameraIntrinsics, rvec, tvec r3.Vector) *PnPSolution {
	const nParams = 6
	nRes := 2 * len(object)
	params := []float64{rvec.X, rvec.Y, rvec.Z, tvec.X, tvec.Y, tvec.Z}
	res := make([]float64, nRes)
	pnpResiduals(params, object, imagePts, k, res)
	cost := sumSquares(res)

	jac := mat.NewDense(nRes, nParams, nil)
	plus, minus := make([]float64, nRes), make([]float64, nRes)
	trial := make([]float64, nParams)
	trialRes := make([]float64, nRes)
	mu := -1.
	iter := 0
	for ; iter < pnpMaxIterations && cost > 0; iter++ {
		// central differences
		for j := 0; j < nParams; j++ {
			step := 1e-6 * math.Max(1, math.Abs(params[j]))
			copy(trial, params)
			trial[j] = params[j] + step
			pnpResiduals(trial, object, imagePts, k, plus)
			trial[j] = params[j] - step
			pnpResiduals(trial, object, imagePts, k, minus)
			for i := 0; i < nRes; i++ {
				jac.Set(i, j, (plus[i]-minus[i])/(2*step))
			}
		}
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var grad mat.VecDense
		grad.MulVec(jac.T(), mat.NewVecDense(nRes, res))
		if mu < 0 {
			maxDiag := 0.
			for j := 0; j < nParams; j++ {
				maxDiag = math.Max(maxDiag, jtj.At(j, j))
			}
			mu = 1e-3 * maxDiag
		}

		improved := false
		for !improved && mu < 1e16 {
			damped := mat.DenseCopyOf(&jtj)
			for j := 0; j < nParams; j++ {
				damped.Set(j, j, jtj.At(j, j)+mu*math.Max(jtj.At(j, j), 1e-12))
			}
			var delta mat.VecDense
			if err := delta.SolveVec(damped, &grad); err != nil {
				mu *= 10
				continue
			}
			for j := 0; j < nParams; j++ {
				trial[j] = params[j] - delta.AtVec(j)
			}
			pnpResiduals(trial, object, imagePts, k, trialRes)
			newCost := sumSquares(trialRes)
			if newCost < cost {
				improved = true
				copy(params, trial)
				copy(res, trialRes)
				converged := cost-newCost <= 1e-12*cost || mat.Norm(&delta, 2) <= 1e-12*(1+floats.Norm(params, 2))
				cost = newCost
				mu = math.Max(mu/10, 1e-12)
				if converged {
					iter++
					return lmSolution(params, cost, nRes, iter)
				}
			} else {
				mu *= 10
			}
		}
		if !improved {
			break
		}
	}
	return lmSolution(params, cost, nRes, iter)
}

func lmSolution(params []float64, cost float64, nRes, iterations int) *PnPSolution {
	rvec := r3.Vector{X: params[0], Y: params[1], Z: params[2]}
	return &PnPSolution{
		RVec:       rvec,
		TVec:       r3.Vector{X: params[3], Y: params[4], Z: params[5]},
		Rotation:   spatialmath.RotationVectorToMatrix(rvec),
		RMS:        math.Sqrt(cost / float64(nRes/2)),
		Iterations: iterations,
	}
}
