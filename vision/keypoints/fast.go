package keypoints

import (
	"cmp"
	"image"

	"golang.org/x/exp/slices"
)

// FASTConfig holds the parameters of the FAST segment test.
type FASTConfig struct {
	// NMatchesCircle is the length of the contiguous arc of the 16 pixel circle that has to be
	// brighter or darker than the center.
	NMatchesCircle int `json:"n_matches"`
	// NMSWinSize is the side of the non-maximum suppression window.
	NMSWinSize int `json:"nms_win_size"`
	// Threshold is in gray levels.
	Threshold float64 `json:"threshold"`
	Oriented  bool    `json:"oriented"`
}

var (
	// CrossIdx contains the neighbors coordinates in a 3-cross neighborhood.
	CrossIdx = []image.Point{{0, 3}, {3, 0}, {0, -3}, {-3, 0}}
	// CircleIdx contains the neighbors coordinates in a circle of radius 3 neighborhood.
	CircleIdx = []image.Point{
		{0, -3},
		{1, -3},
		{2, -2},
		{3, -1},
		{3, 0},
		{3, 1},
		{2, 2},
		{1, 3},
		{0, 3},
		{-1, 3},
		{-2, 2},
		{-3, 1},
		{-3, 0},
		{-3, -1},
		{-2, -2},
		{-1, -3},
	}
)

// GetPointValuesInNeighborhood returns a slice of floats containing the values of neighborhood pixels in image img.
func GetPointValuesInNeighborhood(img *image.Gray, coords image.Point, neighborhood []image.Point) []float64 {
	vals := make([]float64, len(neighborhood))
	for i := 0; i < len(neighborhood); i++ {
		c := img.GrayAt(coords.X+neighborhood[i].X, coords.Y+neighborhood[i].Y).Y
		vals[i] = float64(c)
	}
	return vals
}

// isValidSliceVals is true when s holds at least n contiguous non zero values, wrapping around
// the end of the slice.
func isValidSliceVals(s []float64, n int) bool {
	if n <= 0 || n > len(s) {
		return false
	}
	run := 0
	// walk the circle twice to catch arcs crossing index 0
	for i := 0; i < 2*len(s); i++ {
		if s[i%len(s)] > 0 {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func sumOfPositiveValuesSlice(s []float64) float64 {
	sum := 0.
	for _, v := range s {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

func sumOfNegativeValuesSlice(s []float64) float64 {
	sum := 0.
	for _, v := range s {
		if v < 0 {
			sum += v
		}
	}
	return sum
}

// getBrighterValues returns a slice of 0s and 1s, 1 where s is strictly greater than t.
func getBrighterValues(s []float64, t float64) []float64 {
	brighterValues := make([]float64, len(s))
	for i, v := range s {
		if v > t {
			brighterValues[i] = 1
		}
	}
	return brighterValues
}

// getDarkerValues returns a slice of 0s and 1s, 1 where s is strictly lower than t.
func getDarkerValues(s []float64, t float64) []float64 {
	darkerValues := make([]float64, len(s))
	for i, v := range s {
		if v < t {
			darkerValues[i] = 1
		}
	}
	return darkerValues
}

// computeFASTScore classifies the pixel at p and returns its corner score, 0 if it is not a corner.
// The score is the sum of the differences beyond threshold on the winning side.
func computeFASTScore(img *image.Gray, p image.Point, cfg *FASTConfig) float64 {
	center := float64(img.GrayAt(p.X, p.Y).Y)
	hi, lo := center+cfg.Threshold, center-cfg.Threshold

	// the cross pixels are a subset of the circle; an arc of n pixels covers at least n/4 of them
	minCross := cfg.NMatchesCircle / 4
	if minCross > 0 {
		cross := GetPointValuesInNeighborhood(img, p, CrossIdx)
		nBright := sumOfPositiveValuesSlice(getBrighterValues(cross, hi))
		nDark := sumOfPositiveValuesSlice(getDarkerValues(cross, lo))
		if int(nBright) < minCross && int(nDark) < minCross {
			return 0
		}
	}

	circle := GetPointValuesInNeighborhood(img, p, CircleIdx)
	bright := getBrighterValues(circle, hi)
	dark := getDarkerValues(circle, lo)
	score := 0.
	if isValidSliceVals(bright, cfg.NMatchesCircle) {
		diffs := make([]float64, len(circle))
		for i, v := range circle {
			diffs[i] = (v - hi) * bright[i]
		}
		score = sumOfPositiveValuesSlice(diffs)
	}
	if isValidSliceVals(dark, cfg.NMatchesCircle) {
		diffs := make([]float64, len(circle))
		for i, v := range circle {
			diffs[i] = (v - lo) * dark[i]
		}
		if s := -sumOfNegativeValuesSlice(diffs); s > score {
			score = s
		}
	}
	return score
}

// FASTCorner is a corner found in a single image, with its score.
type FASTCorner struct {
	Point image.Point
	Score float64
}

// ComputeFAST runs the segment test on every pixel at least border pixels away from the image edges
// and returns the corners that survive non-maximum suppression, strongest first.
func ComputeFAST(img *image.Gray, cfg *FASTConfig, border int) []FASTCorner {
	if border < 3 {
		border = 3
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 2*border || h <= 2*border {
		return nil
	}
	scores := make([]float64, w*h)
	candidates := make([]FASTCorner, 0)
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			p := image.Point{x, y}
			if s := computeFASTScore(img, p, cfg); s > 0 {
				scores[y*w+x] = s
				candidates = append(candidates, FASTCorner{p, s})
			}
		}
	}
	kept := nonMaximumSuppression(candidates, scores, w, h, cfg.NMSWinSize)
	slices.SortStableFunc(kept, func(a, b FASTCorner) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return kept
}

// nonMaximumSuppression keeps a candidate when no other candidate in its window scores higher.
// Equal scores are resolved in favor of the first one in raster order.
func nonMaximumSuppression(candidates []FASTCorner, scores []float64, w, h, winSize int) []FASTCorner {
	half := winSize / 2
	if half < 1 {
		return candidates
	}
	kept := make([]FASTCorner, 0, len(candidates))
	for _, c := range candidates {
		isMax := true
		for dy := -half; dy <= half && isMax; dy++ {
			y := c.Point.Y + dy
			if y < 0 || y >= h {
				continue
			}
			for dx := -half; dx <= half; dx++ {
				x := c.Point.X + dx
				if x < 0 || x >= w || (dx == 0 && dy == 0) {
					continue
				}
				other := scores[y*w+x]
				if other > c.Score || (other == c.Score && (dy < 0 || (dy == 0 && dx < 0))) {
					isMax = false
					break
				}
			}
		}
		if isMax {
			kept = append(kept, c)
		}
	}
	return kept
}
