// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// Configure installs the global logger. level is a zerolog level name
// ("debug", "info", ...); format is "text" for human-readable console output
// or "json". A nil w writes to stderr.
func Configure(level, format string, w io.Writer) error {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	if w == nil {
		w = os.Stderr
	}

	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	var writer io.Writer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "console":
		writer = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	case "json":
		writer = w
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", format)
	}

	log.Logger = zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)
	return nil
}
