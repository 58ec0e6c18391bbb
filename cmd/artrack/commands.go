package main

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/artrack/config"
	"go.viam.com/artrack/logging"
	"go.viam.com/artrack/render"
	"go.viam.com/artrack/rimage"
	"go.viam.com/artrack/rimage/transform"
	"go.viam.com/artrack/vision/artracking"
	"go.viam.com/artrack/vision/filters"
	"go.viam.com/artrack/vision/keypoints"
)

// loadConfig reads the --config file, or starts from defaults, and applies the command flags.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String(flagConfig); path != "" {
		read, err := config.Read(path, logger)
		if err != nil {
			return nil, err
		}
		cfg = read
		if !c.Bool(flagDebug) {
			logger.SetLevel(cfg.LogLevel)
		}
	} else {
		cfg = config.Default()
	}
	if c.IsSet(flagTarget) {
		cfg.Targets = []config.Target{{ImagePath: c.String(flagTarget)}}
	}
	applyCameraFlags(c, cfg.Camera)
	return cfg, nil
}

func applyCameraFlags(c *cli.Context, params *transform.CameraParameters) {
	if c.IsSet(flagFOVY) {
		params.VerticalFOV = c.Float64(flagFOVY)
	}
	if c.IsSet(flagFOVX) {
		params.HorizontalFOV = c.Float64(flagFOVX)
	}
	if c.IsSet(flagWidth) {
		params.Width = c.Int(flagWidth)
	}
	if c.IsSet(flagHeight) {
		params.Height = c.Int(flagHeight)
	}
	if c.IsSet(flagNear) {
		params.Near = c.Float64(flagNear)
	}
	if c.IsSet(flagFar) {
		params.Far = c.Float64(flagFar)
	}
}

// frameLine is the output of the track command for one frame.
type frameLine struct {
	Frame string `json:"frame"`
	artracking.FrameResult
	Pose *mgl64.Mat4 `json:"pose"`
	// Quaternion is the render rotation as w, x, y, z.
	Quaternion *[4]float64 `json:"quaternion,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func trackAction(c *cli.Context, logger logging.Logger) error {
	if c.NArg() == 0 {
		return errors.New("no frames to track")
	}
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(""); err != nil {
		return err
	}
	if len(cfg.Targets) > 1 {
		logger.Warnw("only the first target is tracked", "targets", len(cfg.Targets))
	}
	orb, err := keypoints.NewORB(cfg.ORB)
	if err != nil {
		return err
	}
	target, err := artracking.LoadReferenceTarget(cfg.TargetImagePath(0), orb)
	if err != nil {
		return err
	}
	target.Name = cfg.TargetName(0)
	projection := transform.NewCameraProjection(logger.Sublogger("camera"))
	if err := projection.SetCameraParameters(*cfg.Camera); err != nil {
		return err
	}
	estimator, err := artracking.NewPoseEstimator(target, orb, projection, cfg.Matching, cfg.Tracker, logger.Sublogger("estimator"))
	if err != nil {
		return err
	}
	logger.Infow("tracking", "target", target.Name, "keypoints", target.Features.Len(), "frames", c.NArg())

	overlayDir := c.String(flagOverlayDir)
	if overlayDir != "" {
		if err := os.MkdirAll(overlayDir, 0o750); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(c.App.Writer)
	for _, path := range c.Args().Slice() {
		line := frameLine{Frame: path}
		frame, err := rimage.ReadImageFromFile(path)
		if err != nil {
			logger.Errorw("skipping frame", "frame", path, "error", err)
			line.Error = err.Error()
			line.FrameResult = artracking.FrameResult{State: estimator.State(), Decision: artracking.DecisionNoFeatures}
			if err := enc.Encode(line); err != nil {
				return err
			}
			continue
		}
		res := estimator.ProcessFrame(c.Context, rimage.ToGray(frame))
		line.FrameResult = res
		if res.Pose != nil {
			line.Pose = &res.Pose.Render
			q := res.Pose.Quaternion()
			line.Quaternion = &[4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
		if overlayDir != "" {
			if err := writeOverlay(overlayDir, path, frame, res, estimator, cfg.OverlayScale); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeOverlay saves the frame with the cube drawn on the target or, while the target is not
// tracked, with the target hint.
func writeOverlay(dir, framePath string, frame image.Image, res artracking.FrameResult,
	estimator *artracking.PoseEstimator, scale float64,
) error {
	var out image.Image
	if res.Pose != nil {
		out = render.DrawCubeOverlay(frame, estimator.Projection().RenderProjection(), res.Pose.Render, scale)
	} else {
		out = filters.DrawTargetHint(frame, estimator.Target().Image)
	}
	out = render.DrawStatus(out, res.State.String()+" "+res.Decision.String())
	name := strings.TrimSuffix(filepath.Base(framePath), filepath.Ext(framePath)) + "_overlay.png"
	return imaging.Save(out, filepath.Join(dir, name))
}

func featuresAction(c *cli.Context, logger logging.Logger) error {
	if c.NArg() != 1 {
		return errors.New("features takes exactly one image")
	}
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	orb, err := keypoints.NewORB(cfg.ORB)
	if err != nil {
		return err
	}
	img, err := rimage.ReadImageFromFile(c.Args().First())
	if err != nil {
		return err
	}
	features, err := orb.DetectAndCompute(rimage.ToGray(img))
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%d keypoints", features.Len())

	refPath := c.String(flagReference)
	if refPath == "" {
		return keypoints.PlotKeypoints(img, features.KeyPoints, c.String(flagOut))
	}
	target, err := artracking.LoadReferenceTarget(refPath, orb)
	if err != nil {
		return err
	}
	matches := keypoints.MatchDescriptors(features.Descriptors, target.Features.Descriptors, cfg.Matching, logger)
	printf(c.App.Writer, "%d matches", len(matches))
	if minDist, maxDist, err := keypoints.MinMaxDistance(matches); err == nil {
		printf(c.App.Writer, "distances in [%d, %d]", minDist, maxDist)
	}
	plot, err := keypoints.PlotMatchedLines(img, target.Image, features.KeyPoints, target.Features.KeyPoints,
		keypoints.SortMatchesByDistance(matches), false)
	if err != nil {
		return err
	}
	return imaging.Save(plot, c.String(flagOut))
}

// projectionOutput is printed by the projection command.
type projectionOutput struct {
	Parameters transform.CameraParameters        `json:"parameters"`
	Frustum    mgl64.Mat4                        `json:"frustum"`
	Intrinsics transform.PinholeCameraIntrinsics `json:"intrinsics"`
	Matrix     [3][3]float64                     `json:"camera_matrix"`
}

func projectionAction(c *cli.Context, logger logging.Logger) error {
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	projection := transform.NewCameraProjection(logger.Sublogger("camera"))
	if err := projection.SetCameraParameters(*cfg.Camera); err != nil {
		return err
	}
	snap := projection.Snapshot()
	out := projectionOutput{Parameters: snap.Params, Frustum: snap.Frustum, Intrinsics: snap.Intrinsics}
	k := snap.Intrinsics.GetCameraMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Matrix[i][j] = k.At(i, j)
		}
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
