package keypoints

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"go.viam.com/artrack/rimage"
	"go.viam.com/artrack/utils"
)

// SamplingType stores 0 if a sampling of image points for BRIEF is uniform, 1 if gaussian, 2 if fixed.
type SamplingType int

const (
	uniform SamplingType = iota // 0
	normal                      // 1
	fixed                       // 2
)

// SamplePairs are N pairs of points used to create the BRIEF Descriptors of a patch.
type SamplePairs struct {
	P0 []image.Point
	P1 []image.Point
	N  int
}

// BRIEFConfig stores the parameters.
type BRIEFConfig struct {
	N              int          `json:"n"` // number of samples taken
	Sampling       SamplingType `json:"sampling"`
	UseOrientation bool         `json:"use_orientation"`
	PatchSize      int          `json:"patch_size"`
	Seed           int64        `json:"seed"`
}

// Validate checks the descriptor can be packed in 64 bit words and the patch is usable.
func (cfg *BRIEFConfig) Validate() error {
	if cfg.N <= 0 || cfg.N%64 != 0 {
		return errors.Errorf("brief n should be a positive multiple of 64, got %d", cfg.N)
	}
	if cfg.PatchSize < 5 {
		return errors.Errorf("brief patch_size should be >= 5, got %d", cfg.PatchSize)
	}
	if cfg.Sampling < uniform || cfg.Sampling > fixed {
		return errors.Errorf("unknown brief sampling %d", cfg.Sampling)
	}
	return nil
}

// GenerateSamplePairs generates n samples for a patch size with the chosen Sampling Type. The same
// seed always yields the same pairs.
func GenerateSamplePairs(dist SamplingType, n, patchSize int, seed int64) *SamplePairs {
	src := rand.NewPCG(uint64(seed), 0)
	rng := rand.New(src) //nolint:gosec
	// sample positions
	var xs0, ys0, xs1, ys1 []int
	if dist == fixed {
		xs0 = sampleIntegers(src, patchSize, n, dist)
		ys0 = sampleIntegers(src, patchSize, n, dist)
		xs1 = sampleIntegers(src, patchSize, n, dist)
		ys1 = make([]int, n)
		// shuffle the regular grid so the pairs are not all aligned
		rng.Shuffle(n, func(i, j int) { ys0[i], ys0[j] = ys0[j], ys0[i] })
		rng.Shuffle(n, func(i, j int) { xs1[i], xs1[j] = xs1[j], xs1[i] })
		for i := 0; i < n; i++ {
			ys1[i] = -ys0[i]
			if i%2 == 0 {
				xs0[i] = 2 * xs0[i] / 3
				xs1[i] = -2 * xs1[i] / 3
				ys1[i] = ys0[i]
			}
		}
	} else {
		xs0 = sampleIntegers(src, patchSize, n, dist)
		ys0 = sampleIntegers(src, patchSize, n, dist)
		xs1 = sampleIntegers(src, patchSize, n, dist)
		ys1 = sampleIntegers(src, patchSize, n, dist)
	}
	p0 := make([]image.Point, 0, n)
	p1 := make([]image.Point, 0, n)
	for i := 0; i < n; i++ {
		p0 = append(p0, image.Point{X: xs0[i], Y: ys0[i]})
		p1 = append(p1, image.Point{X: xs1[i], Y: ys1[i]})
	}

	return &SamplePairs{P0: p0, P1: p1, N: n}
}

func sampleIntegers(src rand.Source, patchSize, n int, sampling SamplingType) []int {
	vMin := math.Round(-(float64(patchSize) - 2) / 2.)
	vMax := math.Round(float64(patchSize) / 2.)
	switch sampling {
	case uniform:
		return utils.SampleNIntegersUniform(src, n, vMin, vMax)
	case normal:
		return utils.SampleNIntegersNormal(src, n, vMin, vMax)
	case fixed:
		return utils.SampleNRegularlySpaced(n, vMin, vMax)
	default:
		return utils.SampleNIntegersUniform(src, n, vMin, vMax)
	}
}

// Radius returns how far from the keypoint a sample can land, rotated or not.
func (sp *SamplePairs) Radius(rotated bool) int {
	r := 0.
	for _, pts := range [][]image.Point{sp.P0, sp.P1} {
		for _, p := range pts {
			var d float64
			if rotated {
				d = math.Hypot(float64(p.X), float64(p.Y))
			} else {
				d = math.Max(math.Abs(float64(p.X)), math.Abs(float64(p.Y)))
			}
			r = math.Max(r, d)
		}
	}
	// rounding of the rotated coordinates can move a sample by one more pixel
	return int(math.Ceil(r)) + 1
}

// BlurForBRIEF smooths a layer with a 5x5 Gaussian before sampling.
func BlurForBRIEF(img *image.Gray) (*image.Gray, error) {
	return rimage.ConvolveGray(img, rimage.GetGaussian5(), image.Point{2, 2}, rimage.BorderReflect)
}

// ComputeBRIEFDescriptors computes BRIEF descriptors on the already blurred image at the layer
// pixels of kps. Keypoints whose patch leaves the image are an error.
func ComputeBRIEFDescriptors(blurred *image.Gray, sp *SamplePairs, kps []KeyPoint, cfg *BRIEFConfig) (Descriptors, error) {
	descs := make(Descriptors, len(kps))
	bnd := blurred.Bounds()
	radius := sp.Radius(cfg.UseOrientation)
	for k, kp := range kps {
		p := kp.LayerPoint()
		if !image.Rect(p.X-radius, p.Y-radius, p.X+radius+1, p.Y+radius+1).In(bnd) {
			return nil, errors.Errorf("keypoint %d at %v is too close to the border of a %v layer", k, p, bnd.Size())
		}
		cosTheta := 1.0
		sinTheta := 0.0
		// if use orientation, compute rotation matrix
		if cfg.UseOrientation {
			cosTheta = math.Cos(kp.Orientation)
			sinTheta = math.Sin(kp.Orientation)
		}
		// Divide by 64 since we store a descriptor as a uint64 array.
		descriptor := make(Descriptor, sp.N/64)
		for i := 0; i < sp.N; i++ {
			x0, y0 := float64(sp.P0[i].X), float64(sp.P0[i].Y)
			x1, y1 := float64(sp.P1[i].X), float64(sp.P1[i].Y)
			// compute rotated sampled coordinates (Identity matrix if no orientation)
			outx0 := int(math.Round(cosTheta*x0 - sinTheta*y0))
			outy0 := int(math.Round(sinTheta*x0 + cosTheta*y0))
			outx1 := int(math.Round(cosTheta*x1 - sinTheta*y1))
			outy1 := int(math.Round(sinTheta*x1 + cosTheta*y1))
			// fill BRIEF descriptor
			p0Val := blurred.GrayAt(p.X+outx0, p.Y+outy0).Y
			p1Val := blurred.GrayAt(p.X+outx1, p.Y+outy1).Y
			if p0Val > p1Val {
				// This flips the bit at i%64 of word i/64 to 1.
				descriptor[i/64] |= 1 << (i % 64)
			}
		}
		descs[k] = descriptor
	}
	return descs, nil
}
