package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 matrix (represented as a 2D array) mapping points of one plane onto another,
// up to scale. Indices are [row][column].
type Homography [3][3]float64

// At returns the element at row, col.
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Apply maps pt through the homography.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

func homographyFromDense(m mat.Matrix) *Homography {
	h := &Homography{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[i][j] = m.At(i, j)
		}
	}
	return h
}

// EstimateHomography computes the homography mapping src onto dst with the normalized direct linear
// transform. Four or more correspondences are needed and src must not be collinear.
func EstimateHomography(src, dst []r2.Point) (*Homography, error) {
	if len(src) != len(dst) {
		return nil, errors.Errorf("src and dst must have the same number of points, got %d and %d", len(src), len(dst))
	}
	if len(src) < 4 {
		return nil, errors.Wrapf(ErrTooFewPoints, "homography needs 4 correspondences, got %d", len(src))
	}
	if isCollinear(src) || isCollinear(dst) {
		return nil, ErrDegenerateConfiguration
	}
	srcN, T1 := normalizePoints(src)
	dstN, T2 := normalizePoints(dst)

	nRows := 2 * len(src)
	// pad to 9 rows so the full SVD always yields a 9x9 V
	if nRows < 9 {
		nRows = 9
	}
	a := mat.NewDense(nRows, 9, nil)
	for i := range srcN {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}
	svd := performSVD(a)
	if svd == nil {
		return nil, errors.Wrap(ErrDegenerateConfiguration, "svd failed")
	}
	// a rank below 8 leaves more than one solution
	if svd.Values[0] == 0 || svd.Values[7]/svd.Values[0] < 1e-12 {
		return nil, ErrDegenerateConfiguration
	}
	hn := mat.NewDense(3, 3, mat.Col(nil, 8, svd.V))

	// denormalize: H = T2^-1 Hn T1
	var t2Inv mat.Dense
	if err := t2Inv.Inverse(T2); err != nil {
		return nil, errors.Wrap(ErrDegenerateConfiguration, err.Error())
	}
	var tmp, hm mat.Dense
	tmp.Mul(&t2Inv, hn)
	hm.Mul(&tmp, T1)
	if s := hm.At(2, 2); math.Abs(s) > 1e-12 {
		hm.Scale(1/s, &hm)
	}
	for _, v := range hm.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrSolverDiverged
		}
	}
	return homographyFromDense(&hm), nil
}
