package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// WithContext returns a child context carrying l. Request middleware
// uses it to scope the logger with per-request fields.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger carried by ctx. When ctx has none it falls
// back to fallback, and to a no-op logger when that is nil too.
func From(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}
