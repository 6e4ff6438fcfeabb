// Package logging builds the daemon's structured logger.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPlain   = "plain" // Alias of console
)

// New returns a zerolog logger writing to w at level.
// Format "console" (or "plain") renders human-readable lines; anything else is JSON.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if level == "" {
		level = zerolog.InfoLevel.String()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level (%s): %w", level, err)
	}

	out := w
	switch strings.ToLower(format) {
	case FormatConsole, FormatPlain:
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
