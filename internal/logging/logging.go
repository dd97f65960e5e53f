// Package logging builds the hclog loggers shared by the CLI and the world.
package logging

import (
	"io"
	"os"

	"gml-vm/internal/config"

	"github.com/hashicorp/go-hclog"
)

// New returns a logger named gmlvm writing to w, or stderr when w is nil.
func New(cfg config.Log, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "gmlvm",
		Level:      level,
		Output:     w,
		JSONFormat: cfg.JSON,
	})
}

// Discard is a logger for tests and embedders that do not want output.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}
