// Package logging configures log/slog for gitsemver.
//
// Records are written as JSON to stderr so stdout stays reserved for the
// status line. The level comes from the caller (the --log-level flag) and
// falls back to the LOG_LEVEL environment variable, then to "warn". Every
// record carries the module name and version; debug records also carry the
// source location.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel names the environment variable consulted when no level is given.
const EnvLogLevel = "LOG_LEVEL"

// DefaultLevel is used when neither the caller nor the environment sets one.
const DefaultLevel = slog.LevelWarn

// ParseLogLevel converts a case-insensitive level name into a slog.Level.
// Unknown or empty names yield DefaultLevel.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return DefaultLevel
}

func resolveLevel(level string) slog.Level {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv(EnvLogLevel)
	}
	return ParseLogLevel(level)
}

// NewStructuredLogger returns a JSON logger writing to w.
func NewStructuredLogger(w io.Writer, module, version, level string) *slog.Logger {
	lvl := resolveLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(h).With("module", module, "version", version)
}

// SetDefaultStructuredLoggerWithLevel installs a stderr JSON logger as the
// slog default.
func SetDefaultStructuredLoggerWithLevel(module, version, level string) {
	slog.SetDefault(NewStructuredLogger(os.Stderr, module, version, level))
}
