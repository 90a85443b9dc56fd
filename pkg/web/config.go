package web

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/pkg/web/middleware"
)

// Config Web 服务配置
type Config struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableTLS       bool          `mapstructure:"enable_tls"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`

	CORS      middleware.CORSConfig      `mapstructure:"cors"`
	RateLimit middleware.RateLimitConfig `mapstructure:"rate_limit"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		Mode:            gin.ReleaseMode,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		CORS:            *middleware.DefaultCORSConfig(),
		RateLimit:       *middleware.DefaultRateLimitConfig(),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidConfig
	}
	if c.EnableTLS && (c.CertFile == "" || c.KeyFile == "") {
		return ErrInvalidConfig
	}
	return nil
}
