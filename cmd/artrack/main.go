// Package main is the artrack command line tool.
package main

import (
	"os"

	"go.viam.com/artrack/logging"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		logger := logging.Global()
		logger.Error(err)
		//nolint:errcheck
		logger.Sync()
		os.Exit(1)
	}
}
