// Package observability provides structured logging for lookout components.
// Diagnostics go to stderr as JSON so stdout stays free for the operator
// render stream.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a structured logger scoped to one component.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a component logger writing JSON lines to stderr.
func NewLogger(component string, level slog.Level) *Logger {
	return NewLoggerWithOutput(component, level, os.Stderr)
}

// NewLoggerWithOutput creates a component logger with a custom destination.
func NewLoggerWithOutput(component string, level slog.Level, out io.Writer) *Logger {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(
		slog.String("component", component),
	)
	return &Logger{Logger: logger}
}

// WithSubmission returns a logger carrying the submission ID of the current
// session, so step and terminal diagnostics correlate across components.
func (l *Logger) WithSubmission(id string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("submission_id", id))}
}

// ParseLevel maps a config string to a slog level. Unknown strings default
// to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
