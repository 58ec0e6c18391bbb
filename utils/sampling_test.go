package utils

import (
	"math/rand/v2"
	"testing"

	"go.viam.com/test"
)

func TestSampleNIntegersUniform(t *testing.T) {
	samples := SampleNIntegersUniform(rand.NewPCG(1, 0), 5000, -3, 4)
	counts := map[int]int{}
	for _, s := range samples {
		test.That(t, s, test.ShouldBeBetweenOrEqual, -3, 4)
		counts[s]++
	}
	// every integer of the range is hit, ends included
	test.That(t, len(counts), test.ShouldEqual, 8)
	test.That(t, counts[-3], test.ShouldBeGreaterThan, 400)
	test.That(t, counts[4], test.ShouldBeGreaterThan, 400)

	again := SampleNIntegersUniform(rand.NewPCG(1, 0), 5000, -3, 4)
	test.That(t, again, test.ShouldResemble, samples)
	other := SampleNIntegersUniform(rand.NewPCG(2, 0), 5000, -3, 4)
	test.That(t, other, test.ShouldNotResemble, samples)
}

func TestSampleNIntegersNormal(t *testing.T) {
	const n = 10000
	samples := SampleNIntegersNormal(rand.NewPCG(7, 0), n, -15, 16)
	atBorder := 0
	sum := 0
	for _, s := range samples {
		test.That(t, s, test.ShouldBeBetweenOrEqual, -15, 16)
		if s == -15 || s == 16 {
			atBorder++
		}
		sum += s
	}
	// out of range draws are redrawn, so the border bins stay as thin as the tails
	test.That(t, float64(atBorder)/n, test.ShouldBeLessThan, 0.01)
	test.That(t, float64(sum)/n, test.ShouldAlmostEqual, 0.5, 0.3)

	test.That(t, SampleNIntegersNormal(rand.NewPCG(7, 0), n, -15, 16), test.ShouldResemble, samples)
}

func TestSampleNRegularlySpaced(t *testing.T) {
	test.That(t, SampleNRegularlySpaced(5, 0, 8), test.ShouldResemble, []int{0, 2, 4, 6, 8})
	test.That(t, SampleNRegularlySpaced(1, 0, 8), test.ShouldResemble, []int{4})
}
