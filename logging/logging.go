// Package logging sets up the diagnostics logger of the skl tool.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w, at debug level when verbose is
// set and at info level otherwise.
func New(w io.Writer, verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Stderr returns New(os.Stderr, verbose).
func Stderr(verbose bool) zerolog.Logger { return New(os.Stderr, verbose) }
