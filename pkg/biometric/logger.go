package biometric

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// ContextWithLogger returns a copy of ctx carrying l. Pipeline and strategy
// logs for work done under ctx go to l, so request attributes such as a
// request ID appear on every line.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// LoggerFrom returns the logger stored by ContextWithLogger, or fallback.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return fallback
}
