// Package logger wraps log/slog with the server's configuration knobs.
//
// Every component takes a *slog.Logger scoped with a "component" attribute:
//
//	log := logger.For(base, "session")
//	log.Info("session created", "session_id", id)
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls level and output format.
type Config struct {
	Level  string // debug, info, warn, error
	JSON   bool
	Output io.Writer
}

// DefaultConfig logs text at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		JSON:   false,
		Output: os.Stderr,
	}
}

// New builds a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a config string to a slog level; unknown values are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// For returns a child logger tagged with the component name.
// A nil base yields a logger that discards everything, which keeps tests quiet.
func For(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		return Discard()
	}
	return base.With("component", component)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
