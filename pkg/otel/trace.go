package otel

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// 重导出常用类型，业务代码不直接依赖 go.opentelemetry.io/otel
type (
	Span      = trace.Span
	Attribute = attribute.KeyValue
)

var (
	String = attribute.String
	Int    = attribute.Int
	Int64  = attribute.Int64
	Bool   = attribute.Bool
)

// 抽卡相关属性键
const (
	AttrGachaID   = "gacha.id"
	AttrUserID    = "gacha.user_id"
	AttrPattern   = "gacha.pattern"
	AttrExecNum   = "gacha.exec_num"
	AttrErrorCode = "gacha.error_code"
)

// MapCarrier 消息头载体
type MapCarrier = propagation.MapCarrier

// Tracer 获取全局 tracer
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan 以全局 tracer 启动 span
func StartSpan(ctx context.Context, tracer, name string, kind trace.SpanKind, attrs ...Attribute) (context.Context, Span) {
	return otel.Tracer(tracer).Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// RecordError 记录错误并标记 span 失败
func RecordError(span Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Inject 将当前追踪上下文写入 headers
func Inject(ctx context.Context, headers map[string]string) {
	otel.GetTextMapPropagator().Inject(ctx, MapCarrier(headers))
}

// Extract 从 headers 恢复追踪上下文
func Extract(ctx context.Context, headers map[string]string) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, MapCarrier(headers))
}

// ExtractHTTP 从 HTTP 请求头恢复追踪上下文
func ExtractHTTP(ctx context.Context, h http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(h))
}

// span 类型
const (
	SpanKindServer   = trace.SpanKindServer
	SpanKindInternal = trace.SpanKindInternal
	SpanKindProducer = trace.SpanKindProducer
	SpanKindConsumer = trace.SpanKindConsumer
)
