package utils

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func TestAngles(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, RadToDeg(DegToRad(43.6)), test.ShouldAlmostEqual, 43.6)
}

func TestClampAndCompare(t *testing.T) {
	test.That(t, ClampF64(-3, 0, 255), test.ShouldEqual, 0)
	test.That(t, ClampF64(300, 0, 255), test.ShouldEqual, 255)
	test.That(t, ClampF64(12.5, 0, 255), test.ShouldEqual, 12.5)
	test.That(t, Float64AlmostEqual(1, 1+1e-9, 1e-6), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.1, 1e-6), test.ShouldBeFalse)
	test.That(t, AbsInt(-4), test.ShouldEqual, 4)
	test.That(t, MaxInt(2, 5), test.ShouldEqual, 5)
	test.That(t, MinInt(2, 5), test.ShouldEqual, 2)
}

func TestSampling(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	uniform := SampleNIntegersUniform(rng, 500, -15, 16)
	test.That(t, len(uniform), test.ShouldEqual, 500)
	for _, v := range uniform {
		test.That(t, v, test.ShouldBeBetweenOrEqual, -15, 16)
	}
	normal := SampleNIntegersNormal(rng, 500, -15, 16)
	for _, v := range normal {
		test.That(t, v, test.ShouldBeBetweenOrEqual, -15, 16)
	}
	regular := SampleNRegularlySpaced(5, 0, 8)
	test.That(t, regular, test.ShouldResemble, []int{0, 2, 4, 6, 8})

	// same seed, same samples
	a := SampleNIntegersUniform(rand.New(rand.NewSource(7)), 32, -15, 16)
	b := SampleNIntegersUniform(rand.New(rand.NewSource(7)), 32, -15, 16)
	test.That(t, a, test.ShouldResemble, b)
}
