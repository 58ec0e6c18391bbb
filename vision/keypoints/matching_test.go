package keypoints

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/artrack/logging"
)

func TestHammingDistance(t *testing.T) {
	d, err := HammingDistance(Descriptor{0b1011, 0}, Descriptor{0b0001, 1 << 63})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 3)

	_, err = HammingDistance(Descriptor{0}, Descriptor{0, 0})
	test.That(t, err, test.ShouldNotBeNil)

	dists, err := DescriptorsHammingDistance(Descriptors{{0}, {0xff}}, Descriptors{{0x0f}, {0xff}, {0}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dists, test.ShouldResemble, [][]int{{4, 8, 0}, {4, 0, 8}})
}

func TestMatchDescriptors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	scene := Descriptors{{0x0f}, {0xff}, {0x01}, {0xf0}}
	reference := Descriptors{{0x0f}, {0xff}, {0x00}}

	matches := MatchDescriptors(scene, reference, &MatchingConfig{}, logger)
	test.That(t, matches, test.ShouldResemble, []DescriptorMatch{
		{Idx1: 0, Idx2: 0, Distance: 0},
		{Idx1: 1, Idx2: 1, Distance: 0},
		{Idx1: 2, Idx2: 2, Distance: 1},
		// 0xf0 is 4 bits away from both 0xff and 0x00, the first one wins
		{Idx1: 3, Idx2: 1, Distance: 4},
	})

	// the best scene match of reference 1 is scene 1, so scene 3 is dropped
	matches = MatchDescriptors(scene, reference, &MatchingConfig{DoCrossCheck: true}, logger)
	test.That(t, len(matches), test.ShouldEqual, 3)
	test.That(t, matches[2].Idx1, test.ShouldEqual, 2)

	matches = MatchDescriptors(scene, reference, &MatchingConfig{MaxDist: 1}, logger)
	test.That(t, len(matches), test.ShouldEqual, 2)

	test.That(t, MatchDescriptors(nil, reference, nil, logger), test.ShouldBeEmpty)
	test.That(t, MatchDescriptors(scene, nil, nil, logger), test.ShouldBeEmpty)
	test.That(t, MatchDescriptors(Descriptors{{1, 2}}, reference, nil, logger), test.ShouldBeEmpty)
}

func TestSortAndMinMax(t *testing.T) {
	matches := []DescriptorMatch{{0, 0, 7}, {1, 1, 2}, {2, 0, 40}, {3, 2, 5}}
	sorted := SortMatchesByDistance(matches)
	test.That(t, sorted[0].Distance, test.ShouldEqual, 2)
	test.That(t, sorted[3].Distance, test.ShouldEqual, 40)
	test.That(t, matches[0].Distance, test.ShouldEqual, 7)

	minDist, maxDist, err := MinMaxDistance(matches)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, minDist, test.ShouldEqual, 2)
	test.That(t, maxDist, test.ShouldEqual, 40)
	_, _, err = MinMaxDistance(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGetMatchingKeyPoints(t *testing.T) {
	sceneKps := []KeyPoint{{Point: r2.Point{X: 1, Y: 1}}, {Point: r2.Point{X: 2, Y: 2}}}
	refKps := []KeyPoint{{Point: r2.Point{X: 10, Y: 10}}}
	s, r, err := GetMatchingKeyPoints([]DescriptorMatch{{1, 0, 3}}, sceneKps, refKps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s[0].Point, test.ShouldResemble, r2.Point{X: 2, Y: 2})
	test.That(t, r[0].Point, test.ShouldResemble, r2.Point{X: 10, Y: 10})

	_, _, err = GetMatchingKeyPoints([]DescriptorMatch{{0, 1, 3}}, sceneKps, refKps)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlots(t *testing.T) {
	img := blockTexture(96, 64, 2)
	kps := []KeyPoint{{Point: r2.Point{X: 10, Y: 10}, Scale: 1}, {Point: r2.Point{X: 40, Y: 30}, Scale: 2}}
	out := filepath.Join(t.TempDir(), "kps.png")
	test.That(t, PlotKeypoints(img, kps, out), test.ShouldBeNil)

	matches := []DescriptorMatch{{0, 1, 0}, {1, 0, 5}}
	plot, err := PlotMatchedLines(img, img, kps, kps, matches, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plot.Bounds().Size(), test.ShouldResemble, image.Point{192, 64})
	plot, err = PlotMatchedLines(img, img, kps, kps, matches, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plot.Bounds().Size(), test.ShouldResemble, image.Point{96, 128})
}
