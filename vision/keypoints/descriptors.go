package keypoints

import (
	"math/bits"

	"github.com/pkg/errors"
)

type (
	// Descriptor is a binary descriptor packed in 64 bit words, bit i of the test sequence being
	// bit i%64 of word i/64.
	Descriptor []uint64
	// Descriptors is an ordered set of descriptors.
	Descriptors []Descriptor
)

// ErrDescriptorLength is returned when comparing descriptors of different sizes.
var ErrDescriptorLength = errors.New("descriptors must have the same length")

// HammingDistance returns the number of differing bits of two descriptors.
func HammingDistance(d1, d2 Descriptor) (int, error) {
	if len(d1) != len(d2) {
		return 0, errors.Wrapf(ErrDescriptorLength, "got %d and %d words", len(d1), len(d2))
	}
	dist := 0
	for i := range d1 {
		dist += bits.OnesCount64(d1[i] ^ d2[i])
	}
	return dist, nil
}

// DescriptorsHammingDistance computes the pairwise distances between two sets of descriptors.
// Row i holds the distances from descs1[i] to every element of descs2.
func DescriptorsHammingDistance(descs1, descs2 Descriptors) ([][]int, error) {
	distances := make([][]int, len(descs1))
	for i, d1 := range descs1 {
		distances[i] = make([]int, len(descs2))
		for j, d2 := range descs2 {
			d, err := HammingDistance(d1, d2)
			if err != nil {
				return nil, err
			}
			distances[i][j] = d
		}
	}
	return distances, nil
}
