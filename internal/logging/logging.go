// Package logging builds the process-wide zerolog logger from LOG_LEVEL and LOG_FORMAT.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Bootstrap returns a JSON logger at info level for failures that happen before configuration
// is loaded. The result is addressable, so callers can chain Fatal on it.
func Bootstrap(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Str("service", "ztcp-auth").Logger()
}

// New returns a logger writing to stderr. See NewWithWriter.
func New(level, format string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter returns a timestamped logger at level ("debug", "info", ...; empty means info).
// format "console" renders human-readable lines; anything else writes JSON.
func NewWithWriter(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("logging: invalid level %q: %w", level, err)
		}
		lvl = parsed
	}

	out := w
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "ztcp-auth").Logger(), nil
}
