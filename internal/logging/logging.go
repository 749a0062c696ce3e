// Package logging builds the diagnostic logger. Diagnostics go to stderr so
// generator output and announced command lines on stdout stay clean.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const EnvLogNoColor = "SOLID_AUTO_APP_BLOCKS_LOG_NOCOLOR"

// New returns a console logger writing to w at level
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    noColor(),
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "app-blocks").Logger()
}

// ForCommand is New on stderr for a level name taken from configuration
func ForCommand(raw string) zerolog.Logger {
	level, _ := ParseLevel(raw)
	return New(os.Stderr, level)
}

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// fall back to warn and report false.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.WarnLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.WarnLevel, false
	}
}

func noColor() bool {
	raw := strings.TrimSpace(os.Getenv(EnvLogNoColor))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}
