// Package logger builds the slog loggers used across the console.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config selects level and output format.
type Config struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
	NoColor   bool   `yaml:"no_color"`
}

// New returns a logger writing to stdout.
func New(cfg Config) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter returns a logger writing to w. Text output goes through tint.
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)
	var h slog.Handler
	if strings.EqualFold(cfg.Format, FormatJSON) {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource})
	} else {
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  cfg.AddSource,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		})
	}
	return slog.New(h)
}

// ParseLevel maps a level name to slog; unknown names become info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
)

// WithRequestID stores a request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithUserID stores the operator user id on ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// FromContext returns l annotated with the ids found on ctx.
func FromContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	for _, k := range []contextKey{RequestIDKey, UserIDKey} {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			l = l.With(string(k), v)
		}
	}
	return l
}
