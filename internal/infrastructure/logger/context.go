package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey       contextKey = "logger"
	requestIDKey    contextKey = "request_id"
	franchiseeIDKey contextKey = "franchisee_id"
)

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the attached logger or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID stored in ctx
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithFranchiseeID stores the franchisee an operation acts for
func WithFranchiseeID(ctx context.Context, franchiseeID string) context.Context {
	return context.WithValue(ctx, franchiseeIDKey, franchiseeID)
}

// GetFranchiseeID returns the franchisee stored in ctx
func GetFranchiseeID(ctx context.Context) string {
	id, _ := ctx.Value(franchiseeIDKey).(string)
	return id
}

// L returns the context logger enriched with trace, request and franchisee fields.
//
//	logger.L(ctx).Info("Invoice sent", zap.String("invoice_number", inv.Number))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the correlation fields found in ctx to l
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetFranchiseeID(ctx); id != "" {
		fields = append(fields, zap.String("franchisee_id", id))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
