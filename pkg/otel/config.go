package otel

import "time"

// ExporterType 导出器类型
type ExporterType string

const (
	ExporterOTLPHTTP ExporterType = "otlp-http"
	ExporterOTLPGRPC ExporterType = "otlp-grpc"
	ExporterStdout   ExporterType = "stdout"
	ExporterNoop     ExporterType = "noop"
)

// Config 追踪配置
type Config struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	// Endpoint OTLP 地址，HTTP 默认 4318，gRPC 默认 4317
	Endpoint string       `mapstructure:"endpoint"`
	Exporter ExporterType `mapstructure:"exporter"`
	Insecure bool         `mapstructure:"insecure"`

	// SampleRatio 采样率，1 表示全采样，跟随父 span 决策
	SampleRatio float64 `mapstructure:"sample_ratio"`

	BatchTimeout    time.Duration     `mapstructure:"batch_timeout"`
	MaxQueueSize    int               `mapstructure:"max_queue_size"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	Attributes      map[string]string `mapstructure:"attributes"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Enabled:         false,
		ServiceName:     "gacha-draw",
		Endpoint:        "localhost:4318",
		Exporter:        ExporterOTLPHTTP,
		Insecure:        true,
		SampleRatio:     1.0,
		BatchTimeout:    5 * time.Second,
		MaxQueueSize:    2048,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrInvalidServiceName
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}
	switch c.Exporter {
	case ExporterOTLPHTTP, ExporterOTLPGRPC, ExporterStdout, ExporterNoop:
	default:
		return ErrUnsupportedExporter
	}
	return nil
}
