// Package logging wraps log/slog with the field names used across the
// indexing pipeline so skips and artifacts are reported consistently.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with pipeline-specific helpers.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewText creates a Logger that writes human-readable text logs to w.
func NewText(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSON creates a Logger that writes JSON logs to w.
func NewJSON(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// FromConfig builds a logger for the given level name ("debug", "info",
// "warn", "error") and format ("text" or "json").
func FromConfig(w io.Writer, level, format string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "", "text":
		return NewText(w, lvl), nil
	case "json":
		return NewJSON(w, lvl), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("logging: %w", err)
	}
	return lvl, nil
}

// With returns a logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithStage tags every record with the pipeline stage name.
func (l *Logger) WithStage(stage string) *Logger {
	return l.With("stage", stage)
}

// LogSkip records a per-item failure. The item is excluded downstream and the
// batch continues.
func (l *Logger) LogSkip(ctx context.Context, id string, err error) {
	l.WarnContext(ctx, "item skipped",
		"id", id,
		"error", err,
	)
}

// LogProgress reports batch progress every `every` items.
func (l *Logger) LogProgress(ctx context.Context, done, total, every int) {
	if every <= 0 || done == 0 || (done%every != 0 && done != total) {
		return
	}
	l.InfoContext(ctx, "progress",
		"done", done,
		"total", total,
	)
}

// LogBatch summarizes a finished batch.
func (l *Logger) LogBatch(ctx context.Context, total, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch completed with failures",
			"total", total,
			"failed", failed,
			"success", total-failed,
		)
		return
	}
	l.InfoContext(ctx, "batch completed",
		"count", total,
	)
}

// LogArtifact logs an artifact write.
func (l *Logger) LogArtifact(ctx context.Context, path string, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "artifact write failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "artifact written",
		"path", path,
		"entries", entries,
	)
}
