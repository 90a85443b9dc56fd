package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// ContextFieldExtractor 从 context 提取日志字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

// WithRequestID 将请求 ID 写入 context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID 将用户 ID 写入 context
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestIDFromContext 读取请求 ID
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// DefaultContextExtractor 提取 request_id 与 user_id
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if rid, ok := ctx.Value(requestIDKey).(string); ok && rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if uid, ok := ctx.Value(userIDKey).(int64); ok {
		fields = append(fields, zap.Int64("user_id", uid))
	}
	return fields
}
