package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// normalizePoints normalizes points as described in Multiple View Geometry, Alg 4.2: the centroid
// moves to the origin and the mean distance to it becomes sqrt(2).
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense) {
	nPoints := len(pts)
	// computer centroid of points
	mu := r2.Point{}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))
	// compute scale factor
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	scale := 1.
	if d > 0 {
		scale = math.Sqrt(2) / d
	}
	transformData := []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}
	T := mat.NewDense(3, 3, transformData)
	// apply transform to points
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = pts[i].Sub(mu).Mul(scale)
	}
	return pointsTransformed, T
}

// matsSVD stores the matrices from SVD decomposition.
type matsSVD struct {
	U      *mat.Dense
	V      *mat.Dense
	Values []float64
}

// performSVD performs SVD on inputMatrix and returns matrices U and V and the singular values,
// largest first. It returns nil when the factorization fails.
func performSVD(inputMatrix mat.Matrix) *matsSVD {
	var svd mat.SVD
	ok := svd.Factorize(inputMatrix, mat.SVDFull)
	if !ok {
		return nil
	}
	u, v := &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)
	return &matsSVD{u, v, svd.Values(nil)}
}

// isCollinear is true when the points do not span a plane. The spread of the points is measured by
// the singular values of the centered, normalized coordinates.
func isCollinear(pts []r2.Point) bool {
	if len(pts) < 3 {
		return true
	}
	normalized, _ := normalizePoints(pts)
	m := mat.NewDense(len(pts), 2, nil)
	for i, p := range normalized {
		m.Set(i, 0, p.X)
		m.Set(i, 1, p.Y)
	}
	svd := performSVD(m)
	if svd == nil || svd.Values[0] == 0 {
		return true
	}
	const minRatio = 1e-6
	return svd.Values[1]/svd.Values[0] < minRatio
}
