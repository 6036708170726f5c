package cosmoweb

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific helpers so every
// operation logs the same field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRun adds a run identifier field to the logger.
func (l *Logger) WithRun(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", id),
	}
}

// LogIngest logs a catalog ingestion.
func (l *Logger) LogIngest(ctx context.Context, accepted, rejected int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest failed",
			"accepted", accepted,
			"rejected", rejected,
			"error", err,
		)
	} else if rejected > 0 {
		l.WarnContext(ctx, "ingest completed with rejected records",
			"accepted", accepted,
			"rejected", rejected,
		)
	} else {
		l.InfoContext(ctx, "ingest completed",
			"accepted", accepted,
		)
	}
}

// LogRandoms logs a random catalog generation.
func (l *Logger) LogRandoms(ctx context.Context, n int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "random generation failed",
			"points", n,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "random catalog generated",
			"points", n,
		)
	}
}

// LogCorrelate logs a correlation estimate.
func (l *Logger) LogCorrelate(ctx context.Context, bins, undefined int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "correlation estimate failed",
			"bins", bins,
			"error", err,
		)
	} else if undefined > 0 {
		l.WarnContext(ctx, "correlation estimate has undefined bins",
			"bins", bins,
			"undefined", undefined,
		)
	} else {
		l.DebugContext(ctx, "correlation estimate completed",
			"bins", bins,
		)
	}
}

// LogGraph logs a filament graph build.
func (l *Logger) LogGraph(ctx context.Context, edges, components int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "filament graph build failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "filament graph built",
			"edges", edges,
			"components", components,
		)
	}
}

// LogVoidScan logs a void scan.
func (l *Logger) LogVoidScan(ctx context.Context, seeds int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "void scan failed",
			"seeds", seeds,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "void scan completed",
			"seeds", seeds,
		)
	}
}

// LogPublish logs a run publication.
func (l *Logger) LogPublish(ctx context.Context, runID string, artifacts int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run publish failed",
			"run", runID,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "run published",
			"run", runID,
			"artifacts", artifacts,
		)
	}
}
