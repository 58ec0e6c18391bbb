package keypoints

import (
	"encoding/json"
	"image"
	"image/draw"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/artrack/logging"
)

// blockTexture fills a w x h image with random 8 pixel blocks.
func blockTexture(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	const block = 8
	for by := 0; by < h; by += block {
		for bx := 0; bx < w; bx += block {
			v := uint8(rng.Intn(256))
			for y := by; y < by+block && y < h; y++ {
				for x := bx; x < bx+block && x < w; x++ {
					img.Pix[y*img.Stride+x] = v
				}
			}
		}
	}
	return img
}

func pasteAt(dst *image.Gray, src image.Image, at image.Point) {
	draw.Draw(dst, src.Bounds().Add(at), src, src.Bounds().Min, draw.Src)
}

func testORBConfig() *ORBConfig {
	cfg := DefaultORBConfig()
	cfg.MaxKeypointsPerLayer = 0
	return cfg
}

func TestORBConfigValidation(t *testing.T) {
	test.That(t, DefaultORBConfig().Validate("orb"), test.ShouldBeNil)

	cfg := DefaultORBConfig()
	cfg.Layers = 0
	test.That(t, cfg.Validate("orb"), test.ShouldNotBeNil)

	cfg = DefaultORBConfig()
	cfg.DownscaleFactor = 1
	test.That(t, cfg.Validate("orb"), test.ShouldNotBeNil)

	cfg = DefaultORBConfig()
	cfg.FastConf = nil
	err := cfg.Validate("orb")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fast")

	cfg = DefaultORBConfig()
	cfg.BRIEFConf.N = 100
	test.That(t, cfg.Validate("orb"), test.ShouldNotBeNil)

	cfg = DefaultORBConfig()
	cfg.FastConf.NMatchesCircle = 17
	test.That(t, cfg.Validate("orb"), test.ShouldNotBeNil)
}

func TestLoadORBConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orb.json")
	data, err := json.Marshal(DefaultORBConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)

	cfg, err := LoadORBConfiguration(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, DefaultORBConfig())

	test.That(t, os.WriteFile(path, []byte(`{"n_layers": 2, "downscale_factor": 2}`), 0o600), test.ShouldBeNil)
	_, err = LoadORBConfiguration(path)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadORBConfiguration(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSamplePairs(t *testing.T) {
	sp1 := GenerateSamplePairs(uniform, 256, 31, 5)
	sp2 := GenerateSamplePairs(uniform, 256, 31, 5)
	test.That(t, sp1, test.ShouldResemble, sp2)
	test.That(t, len(sp1.P0), test.ShouldEqual, 256)
	for i := range sp1.P0 {
		test.That(t, sp1.P0[i].X, test.ShouldBeBetweenOrEqual, -15, 16)
		test.That(t, sp1.P1[i].Y, test.ShouldBeBetweenOrEqual, -15, 16)
	}
	test.That(t, sp1.Radius(false), test.ShouldBeLessThanOrEqualTo, 17)
	test.That(t, sp1.Radius(true), test.ShouldBeGreaterThanOrEqualTo, sp1.Radius(false))

	sp3 := GenerateSamplePairs(uniform, 256, 31, 6)
	test.That(t, sp3, test.ShouldNotResemble, sp1)

	fixedPairs := GenerateSamplePairs(fixed, 64, 31, 5)
	test.That(t, len(fixedPairs.P1), test.ShouldEqual, 64)
}

func TestORBEmptyImage(t *testing.T) {
	orb, err := NewORB(testORBConfig())
	test.That(t, err, test.ShouldBeNil)

	features, err := orb.DetectAndCompute(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, features.Len(), test.ShouldEqual, 0)

	features, err = orb.DetectAndCompute(image.NewGray(image.Rect(0, 0, 100, 100)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, features.Len(), test.ShouldEqual, 0)
	test.That(t, len(features.Descriptors), test.ShouldEqual, 0)

	// too small for a single descriptor patch
	features, err = orb.DetectAndCompute(blockTexture(20, 20, 1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, features.Len(), test.ShouldEqual, 0)
}

func TestORBDetectAndCompute(t *testing.T) {
	orb, err := NewORB(testORBConfig())
	test.That(t, err, test.ShouldBeNil)
	img := blockTexture(192, 192, 3)

	features, err := orb.DetectAndCompute(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, features.Len(), test.ShouldBeGreaterThan, 50)
	test.That(t, len(features.Descriptors), test.ShouldEqual, len(features.KeyPoints))

	border := orb.Border()
	for i, kp := range features.KeyPoints {
		test.That(t, len(features.Descriptors[i]), test.ShouldEqual, 4)
		p := kp.LayerPoint()
		size := image.Point{192, 192}.Div(int(kp.Scale))
		test.That(t, p.X, test.ShouldBeBetweenOrEqual, border, size.X-border-1)
		test.That(t, p.Y, test.ShouldBeBetweenOrEqual, border, size.Y-border-1)
		if i > 0 {
			prev := features.KeyPoints[i-1]
			test.That(t, prev.Octave, test.ShouldBeLessThanOrEqualTo, kp.Octave)
			if prev.Octave == kp.Octave {
				test.That(t, prev.Response, test.ShouldBeGreaterThanOrEqualTo, kp.Response)
			}
		}
	}

	// Detect then Extract is the same as DetectAndCompute
	kps, err := orb.Detect(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kps, test.ShouldResemble, features.KeyPoints)
	descs, err := orb.Extract(img, kps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, descs, test.ShouldResemble, features.Descriptors)

	// the layer cap keeps the strongest keypoints of each layer
	capped := testORBConfig()
	capped.MaxKeypointsPerLayer = 10
	orbCapped, err := NewORB(capped)
	test.That(t, err, test.ShouldBeNil)
	kpsCapped, err := orbCapped.Detect(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(kpsCapped), test.ShouldBeLessThanOrEqualTo, 10*capped.Layers)
	test.That(t, kpsCapped[0], test.ShouldResemble, features.KeyPoints[0])

	// a keypoint from a layer the image does not have
	_, err = orb.Extract(img, []KeyPoint{{Octave: 9, Scale: 512}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestORBTranslationInvariance(t *testing.T) {
	orb, err := NewORB(testORBConfig())
	test.That(t, err, test.ShouldBeNil)
	texture := blockTexture(192, 192, 3)
	frame := image.NewGray(image.Rect(0, 0, 640, 480))
	offset := image.Point{224, 144}
	pasteAt(frame, texture, offset)

	ref, err := orb.DetectAndCompute(texture)
	test.That(t, err, test.ShouldBeNil)
	scene, err := orb.DetectAndCompute(frame)
	test.That(t, err, test.ShouldBeNil)

	matches := MatchDescriptors(scene.Descriptors, ref.Descriptors, nil, logging.NewTestLogger(t))
	test.That(t, len(matches), test.ShouldEqual, scene.Len())

	exact, shifted := 0, 0
	for _, m := range matches {
		if m.Distance != 0 {
			continue
		}
		exact++
		s, r := scene.KeyPoints[m.Idx1].Point, ref.KeyPoints[m.Idx2].Point
		if s.Sub(r) == (r2.Point{X: float64(offset.X), Y: float64(offset.Y)}) {
			shifted++
		}
	}
	test.That(t, shifted, test.ShouldBeGreaterThan, 20)
	test.That(t, float64(shifted), test.ShouldBeGreaterThan, 0.9*float64(exact))
}

func TestSortKeyPoints(t *testing.T) {
	kps := []KeyPoint{
		{Point: r2.Point{X: 5, Y: 5}, Octave: 1, Response: 9},
		{Point: r2.Point{X: 3, Y: 2}, Octave: 0, Response: 4},
		{Point: r2.Point{X: 1, Y: 2}, Octave: 0, Response: 4},
		{Point: r2.Point{X: 9, Y: 9}, Octave: 0, Response: 7},
		{Point: r2.Point{X: 0, Y: 1}, Octave: 0, Response: 4},
	}
	sortKeyPoints(kps)
	expected := []r2.Point{{X: 9, Y: 9}, {X: 0, Y: 1}, {X: 1, Y: 2}, {X: 3, Y: 2}, {X: 5, Y: 5}}
	for i, kp := range kps {
		test.That(t, kp.Point, test.ShouldResemble, expected[i])
	}
	test.That(t, kps[4].Octave, test.ShouldEqual, 1)
}
