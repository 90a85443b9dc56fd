package otel

import (
	"context"
	"sync/atomic"

	"github.com/lk2023060901/gachadraw/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider 封装 sdk TracerProvider，未启用时退化为全局 noop
type TracerProvider struct {
	config   *Config
	provider *sdktrace.TracerProvider
	closed   atomic.Bool
}

// New 创建追踪提供者并注册为全局 provider 与传播器
func New(cfg *Config) (*TracerProvider, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		merged.Enabled = cfg.Enabled
		merged.Insecure = cfg.Insecure
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	tp := &TracerProvider{config: merged}
	if !merged.Enabled {
		return tp, nil
	}

	exp, err := newExporter(context.Background(), merged)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return tp, nil
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(merged.ServiceName)}
	for k, v := range merged.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(merged.BatchTimeout),
			sdktrace.WithMaxQueueSize(merged.MaxQueueSize),
		),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(merged.SampleRatio))),
	)
	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// Tracer 获取 tracer
func (p *TracerProvider) Tracer(name string) trace.Tracer {
	if p.provider == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return p.provider.Tracer(name)
}

// IsEnabled 是否真正导出 span
func (p *TracerProvider) IsEnabled() bool {
	return p.provider != nil
}

// Close 刷新并关闭，重复调用无副作用
func (p *TracerProvider) Close() error {
	if p.closed.Swap(true) || p.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownTimeout)
	defer cancel()
	return p.provider.Shutdown(ctx)
}
