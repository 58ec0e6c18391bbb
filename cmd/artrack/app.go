package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/artrack/logging"
	"go.viam.com/artrack/rimage/transform"
)

const (
	// Flags.
	flagConfig     = "config"
	flagDebug      = "debug"
	flagTarget     = "target"
	flagFOVY       = "fov-y"
	flagFOVX       = "fov-x"
	flagWidth      = "width"
	flagHeight     = "height"
	flagNear       = "near"
	flagFar        = "far"
	flagOverlayDir = "overlay-dir"
	flagOut        = "out"
	flagReference  = "reference"
)

func cameraFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: flagFOVY, Usage: "vertical field of view in degrees", Value: transform.DefaultVerticalFOV},
		&cli.Float64Flag{Name: flagFOVX, Usage: "horizontal field of view in degrees", Value: transform.DefaultHorizontalFOV},
		&cli.IntFlag{Name: flagWidth, Usage: "frame width in pixels", Value: transform.DefaultWidth},
		&cli.IntFlag{Name: flagHeight, Usage: "frame height in pixels", Value: transform.DefaultHeight},
		&cli.Float64Flag{Name: flagNear, Usage: "near clip plane", Value: transform.DefaultNear},
		&cli.Float64Flag{Name: flagFar, Usage: "far clip plane", Value: transform.DefaultFar},
	}
}

// newApp builds the command line application. Results go to out and logs to errOut.
func newApp(out, errOut io.Writer) *cli.App {
	var logger logging.Logger
	return &cli.App{
		Name:      "artrack",
		Usage:     "track a planar image target and recover its pose",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			logger = logging.NewBlankLogger("artrack")
			logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			} else {
				logger.SetLevel(logging.INFO)
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "track",
				Usage:     "track the target through a sequence of frames, one JSON line per frame",
				UsageText: fmt.Sprintf("artrack [--%s FILE] track [--%s IMAGE] [other options] FRAMES...", flagConfig, flagTarget),
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: flagTarget, Usage: "reference target `IMAGE`, replacing the configured targets"},
					&cli.StringFlag{Name: flagOverlayDir, Usage: "write annotated frames to `DIR`"},
				}, cameraFlags()...),
				Action: func(c *cli.Context) error {
					return trackAction(c, logger)
				},
			},
			{
				Name:      "features",
				Usage:     "detect ORB keypoints on an image and plot them",
				UsageText: fmt.Sprintf("artrack features --%s FILE [--%s IMAGE] IMAGE", flagOut, flagReference),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagOut, Required: true, Usage: "output png `FILE`"},
					&cli.StringFlag{Name: flagReference, Usage: "plot the matches with this reference `IMAGE` instead"},
				},
				Action: func(c *cli.Context) error {
					return featuresAction(c, logger)
				},
			},
			{
				Name:  "projection",
				Usage: "print the render frustum and the vision intrinsics of a camera",
				Flags: cameraFlags(),
				Action: func(c *cli.Context) error {
					return projectionAction(c, logger)
				},
			},
		},
	}
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
