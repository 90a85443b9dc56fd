package sentry

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// Config Sentry 配置，DSN 为空时上报为空操作
type Config struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	Release     string  `mapstructure:"release"`
	ServerName  string  `mapstructure:"server_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`

	AttachStacktrace bool `mapstructure:"attach_stacktrace"`
	MaxBreadcrumbs   int  `mapstructure:"max_breadcrumbs"`

	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	Debug           bool              `mapstructure:"debug"`
	Tags            map[string]string `mapstructure:"tags"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Environment:      "production",
		SampleRate:       1.0,
		AttachStacktrace: true,
		MaxBreadcrumbs:   100,
		ShutdownTimeout:  2 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.SampleRate < 0 || c.SampleRate > 1 || c.MaxBreadcrumbs < 0 {
		return ErrInvalidConfig
	}
	return nil
}

func (c *Config) clientOptions() sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              c.DSN,
		Environment:      c.Environment,
		Release:          c.Release,
		ServerName:       c.ServerName,
		SampleRate:       c.SampleRate,
		AttachStacktrace: c.AttachStacktrace,
		MaxBreadcrumbs:   c.MaxBreadcrumbs,
		Debug:            c.Debug,
	}
}
