// Package logging configures log/slog for the feed server.
//
// Loggers obtained through FromContext carry chi's request id and, while a
// forecast pipeline run is in progress, its fetch id, so every line written
// for one /api/data call can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const fetchIDKey ctxKey = iota

// Setup installs the process-wide slog logger writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger for w without installing it.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithFetchID returns a context tagged with the id of a pipeline run.
func WithFetchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, fetchIDKey, id)
}

// FetchID returns the pipeline run id stored in ctx, or "".
func FetchID(ctx context.Context) string {
	id, _ := ctx.Value(fetchIDKey).(string)
	return id
}

// FromContext returns the default logger enriched with request_id and
// fetch_id when ctx carries them.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if fetchID := FetchID(ctx); fetchID != "" {
		logger = logger.With("fetch_id", fetchID)
	}

	return logger
}

// WithFields returns a context logger with additional structured fields.
//
//	log := logging.WithFields(ctx, "archive", url)
//	log.Info("archive downloaded", "bytes", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
