// Package logging provides structured logging utilities.
//
// Text logs are formatted in Maven-style with colors:
// [LEVEL] [SYSTEM] [HH:MM:SS] [trace] message key=value
//
// JSON output is available for log shippers with format "json".
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/config"
)

// ParseLevel maps a config level name to a slog level
func ParseLevel(name string) slog.Level {
	switch name {
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

// NewLogger creates a structured logger based on config, writing to stdout.
// The returned LevelVar lets the debug-mode setting raise verbosity at runtime.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, *slog.LevelVar) {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo is NewLogger with an explicit writer
func NewLoggerTo(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	level.Set(ParseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = NewMavenHandler(w, opts)
	}

	return slog.New(handler), level
}

// NewLoggerWithSystem creates a logger with a system prefix (e.g., "gate", "reconcile", "api")
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) *slog.Logger {
	logger, _ := NewLogger(cfg)
	return logger.With(SystemKey, system)
}
