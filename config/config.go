// Package config defines the structures to configure the tracker application.
package config

import (
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/artrack/logging"
	"go.viam.com/artrack/rimage/transform"
	"go.viam.com/artrack/vision/artracking"
	"go.viam.com/artrack/vision/keypoints"
)

// DefaultOverlayScale is the half size of the overlay cube in reference target pixels.
const DefaultOverlayScale = 40.

// Target names a reference target image.
type Target struct {
	Name      string `json:"name"`
	ImagePath string `json:"image_path"`
}

// Validate ensures all parts of the config are valid.
func (t *Target) Validate(path string) error {
	if t.ImagePath == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "image_path")
	}
	return nil
}

// Config describes the targets to track and how to track them. Sections left out of the file are
// filled with defaults.
type Config struct {
	Targets      []Target                    `json:"targets"`
	Camera       *transform.CameraParameters `json:"camera,omitempty"`
	ORB          *keypoints.ORBConfig        `json:"orb,omitempty"`
	Matching     *keypoints.MatchingConfig   `json:"matching,omitempty"`
	Tracker      *artracking.Config          `json:"tracker,omitempty"`
	OverlayScale float64                     `json:"overlay_scale,omitempty"`
	LogLevel     logging.Level               `json:"log_level"`

	ConfigFilePath string `json:"-"`
}

// Default returns a config without targets.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	if c.Camera == nil {
		params := transform.DefaultCameraParameters()
		c.Camera = &params
	}
	if c.ORB == nil {
		c.ORB = keypoints.DefaultORBConfig()
	}
	if c.Matching == nil {
		c.Matching = &keypoints.MatchingConfig{}
	}
	if c.Tracker == nil {
		c.Tracker = artracking.DefaultConfig()
	}
	if c.OverlayScale == 0 {
		c.OverlayScale = DefaultOverlayScale
	}
}

// Validate ensures all parts of the config are valid, reporting every invalid section.
func (c *Config) Validate(path string) error {
	var errs error
	if len(c.Targets) == 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "targets"))
	}
	names := make(map[string]bool, len(c.Targets))
	for idx := range c.Targets {
		targetPath := joinPath(path, fmt.Sprintf("targets.%d", idx))
		errs = multierr.Append(errs, c.Targets[idx].Validate(targetPath))
		name := c.TargetName(idx)
		if names[name] {
			errs = multierr.Append(errs, utils.NewConfigValidationError(targetPath, fmt.Errorf("duplicate target name %q", name)))
		}
		names[name] = true
	}
	if c.Camera != nil {
		if err := c.Camera.Validate(); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(joinPath(path, "camera"), err))
		}
	}
	if c.ORB != nil {
		errs = multierr.Append(errs, c.ORB.Validate(joinPath(path, "orb")))
	}
	if c.Matching != nil && c.Matching.MaxDist < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(joinPath(path, "matching"),
			fmt.Errorf("max_dist cannot be negative, got %d", c.Matching.MaxDist)))
	}
	if c.Tracker != nil {
		errs = multierr.Append(errs, c.Tracker.Validate(joinPath(path, "tracker")))
	}
	if c.OverlayScale < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			fmt.Errorf("overlay_scale cannot be negative, got %v", c.OverlayScale)))
	}
	return errs
}

// TargetName returns the configured name of a target or, when unset, its file name.
func (c *Config) TargetName(idx int) string {
	t := c.Targets[idx]
	if t.Name != "" {
		return t.Name
	}
	base := filepath.Base(t.ImagePath)
	return base[:len(base)-len(filepath.Ext(base))]
}

// TargetImagePath resolves a target image path relative to the config file.
func (c *Config) TargetImagePath(idx int) string {
	p := c.Targets[idx].ImagePath
	if filepath.IsAbs(p) || c.ConfigFilePath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.ConfigFilePath), p)
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
