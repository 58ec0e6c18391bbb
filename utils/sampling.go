package utils

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleNIntegersUniform samples n integers uniformly in [vMin, vMax]. Draws that round outside
// the range are rejected.
func SampleNIntegersUniform(src rand.Source, n int, vMin, vMax float64) []int {
	if vMax < vMin {
		vMin, vMax = vMax, vMin
	}
	// widen by half a bin so both ends are as likely as the inner integers
	dist := distuv.Uniform{Min: vMin - 0.5, Max: vMax + 0.5, Src: src}
	return sampleRejecting(dist.Rand, n, vMin, vMax)
}

// SampleNIntegersNormal samples n integers from a normal distribution centered on (vMin+vMax)/2
// with a standard deviation of a fifth of the range. Draws that round outside [vMin, vMax] are
// rejected, not clamped.
func SampleNIntegersNormal(src rand.Source, n int, vMin, vMax float64) []int {
	if vMax < vMin {
		vMin, vMax = vMax, vMin
	}
	dist := distuv.Normal{Mu: (vMin + vMax) / 2, Sigma: (vMax - vMin) / 5, Src: src}
	return sampleRejecting(dist.Rand, n, vMin, vMax)
}

func sampleRejecting(draw func() float64, n int, vMin, vMax float64) []int {
	z := make([]int, n)
	for i := range z {
		val := math.Round(draw())
		for val < vMin || val > vMax {
			val = math.Round(draw())
		}
		z[i] = int(val)
	}
	return z
}

// SampleNRegularlySpaced returns n integers regularly spaced in [vMin, vMax].
func SampleNRegularlySpaced(n int, vMin, vMax float64) []int {
	samples := make([]int, n)
	if n == 1 {
		samples[0] = int(math.Round((vMin + vMax) / 2))
		return samples
	}
	step := (vMax - vMin) / float64(n-1)
	for i := range samples {
		samples[i] = int(math.Round(vMin + float64(i)*step))
	}
	return samples
}
