package artracking

import (
	"fmt"

	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Config holds the thresholds of the tracking state machine. Distances are Hamming distances
// between 256 bit descriptors.
type Config struct {
	// MinCorrespondences is the number of matches, and of good matches, needed to estimate a pose.
	MinCorrespondences int `json:"min_correspondences"`
	// HoldDistance is the best match distance above which the pose is held instead of recomputed.
	HoldDistance int `json:"hold_distance"`
	// LostDistance is the best match distance above which the target is lost.
	LostDistance int `json:"lost_distance"`
	// GoodMatchFactor scales the best distance into the good match cutoff.
	GoodMatchFactor float64 `json:"good_match_factor"`
	// MinGoodDistance is the lowest good match cutoff, so exact matches are kept when the best
	// distance is 0.
	MinGoodDistance float64 `json:"min_good_distance"`
}

// DefaultConfig returns the thresholds the distance bands were calibrated with.
func DefaultConfig() *Config {
	return &Config{
		MinCorrespondences: 4,
		HoldDistance:       25,
		LostDistance:       50,
		GoodMatchFactor:    1.75,
		MinGoodDistance:    1,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "tracker")
	}
	var errs error
	if cfg.MinCorrespondences < 4 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			fmt.Errorf("min_correspondences must be at least 4, got %d", cfg.MinCorrespondences)))
	}
	if cfg.HoldDistance < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			fmt.Errorf("hold_distance cannot be negative, got %d", cfg.HoldDistance)))
	}
	if cfg.LostDistance < cfg.HoldDistance {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			fmt.Errorf("lost_distance (%d) cannot be below hold_distance (%d)", cfg.LostDistance, cfg.HoldDistance)))
	}
	if cfg.GoodMatchFactor < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			fmt.Errorf("good_match_factor must be at least 1, got %v", cfg.GoodMatchFactor)))
	}
	if cfg.MinGoodDistance < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			fmt.Errorf("min_good_distance cannot be negative, got %v", cfg.MinGoodDistance)))
	}
	return errs
}
