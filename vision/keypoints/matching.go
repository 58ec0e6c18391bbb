package keypoints

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/artrack/logging"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	// DoCrossCheck keeps a match only when the scene descriptor is also the best match of its
	// reference descriptor.
	DoCrossCheck bool `json:"do_cross_check"`
	// MaxDist drops matches at or above this distance when positive.
	MaxDist int `json:"max_dist"`
}

// DescriptorMatch links a scene descriptor (Idx1) to its closest reference descriptor (Idx2).
type DescriptorMatch struct {
	Idx1     int
	Idx2     int
	Distance int
}

// getArgMinDistancesPerRow returns the column of the smallest value of each row, the first one on ties.
func getArgMinDistancesPerRow(distances [][]int) []int {
	argmins := make([]int, len(distances))
	for i, row := range distances {
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] < row[best] {
				best = j
			}
		}
		argmins[i] = best
	}
	return argmins
}

// getArgMinDistancesPerColumn is getArgMinDistancesPerRow on the transposed matrix.
func getArgMinDistancesPerColumn(distances [][]int, nCols int) []int {
	argmins := make([]int, nCols)
	for j := range argmins {
		best := 0
		for i := 1; i < len(distances); i++ {
			if distances[i][j] < distances[best][j] {
				best = i
			}
		}
		argmins[j] = best
	}
	return argmins
}

// MatchDescriptors pairs every scene descriptor with its lowest Hamming distance reference
// descriptor. Matches are returned in scene order; filtered scene descriptors are skipped.
func MatchDescriptors(scene, reference Descriptors, cfg *MatchingConfig, logger logging.Logger) []DescriptorMatch {
	if len(scene) == 0 || len(reference) == 0 {
		return []DescriptorMatch{}
	}
	if cfg == nil {
		cfg = &MatchingConfig{}
	}
	distances, err := DescriptorsHammingDistance(scene, reference)
	if err != nil {
		logger.Debugw("cannot match descriptors", "error", err)
		return []DescriptorMatch{}
	}
	bestRef := getArgMinDistancesPerRow(distances)
	var bestScene []int
	if cfg.DoCrossCheck {
		bestScene = getArgMinDistancesPerColumn(distances, len(reference))
	}
	matches := make([]DescriptorMatch, 0, len(scene))
	for i, j := range bestRef {
		if cfg.DoCrossCheck && bestScene[j] != i {
			continue
		}
		if cfg.MaxDist > 0 && distances[i][j] >= cfg.MaxDist {
			continue
		}
		matches = append(matches, DescriptorMatch{Idx1: i, Idx2: j, Distance: distances[i][j]})
	}
	return matches
}

// SortMatchesByDistance returns a copy of matches ordered from the closest to the farthest.
func SortMatchesByDistance(matches []DescriptorMatch) []DescriptorMatch {
	dists := make([]float64, len(matches))
	for i, m := range matches {
		dists[i] = float64(m.Distance)
	}
	indices := make([]int, len(matches))
	floats.Argsort(dists, indices)
	sorted := make([]DescriptorMatch, len(matches))
	for i, idx := range indices {
		sorted[i] = matches[idx]
	}
	return sorted
}

// MinMaxDistance returns the extreme distances of a non empty set of matches.
func MinMaxDistance(matches []DescriptorMatch) (int, int, error) {
	if len(matches) == 0 {
		return 0, 0, errors.New("no matches")
	}
	minDist, maxDist := matches[0].Distance, matches[0].Distance
	for _, m := range matches[1:] {
		if m.Distance < minDist {
			minDist = m.Distance
		}
		if m.Distance > maxDist {
			maxDist = m.Distance
		}
	}
	return minDist, maxDist, nil
}

// GetMatchingKeyPoints takes the matches and the keypoints and returns the corresponding keypoints that are matched.
func GetMatchingKeyPoints(matches []DescriptorMatch, sceneKps, refKps []KeyPoint) ([]KeyPoint, []KeyPoint, error) {
	matchedScene := make([]KeyPoint, len(matches))
	matchedRef := make([]KeyPoint, len(matches))
	for i, match := range matches {
		if match.Idx1 < 0 || match.Idx1 >= len(sceneKps) {
			return nil, nil, errors.Errorf("match %d refers to scene keypoint %d of %d", i, match.Idx1, len(sceneKps))
		}
		if match.Idx2 < 0 || match.Idx2 >= len(refKps) {
			return nil, nil, errors.Errorf("match %d refers to reference keypoint %d of %d", i, match.Idx2, len(refKps))
		}
		matchedScene[i] = sceneKps[match.Idx1]
		matchedRef[i] = refKps[match.Idx2]
	}
	return matchedScene, matchedRef, nil
}
