package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

// Options 应用选项
type Options struct {
	ID          string
	Name        string
	StopTimeout time.Duration
	Logger      logger.Logger
}

// Option 选项函数
type Option func(*Options)

// DefaultOptions 默认选项
func DefaultOptions() Options {
	return Options{
		ID:          uuid.New().String(),
		Name:        AppName,
		StopTimeout: 30 * time.Second,
		Logger:      logger.Default(),
	}
}

// WithLogger 设置应用日志
func WithLogger(l logger.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithName 设置应用名称
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithID 设置实例 ID
func WithID(id string) Option {
	return func(o *Options) { o.ID = id }
}

// WithStopTimeout 设置优雅停止超时
func WithStopTimeout(t time.Duration) Option {
	return func(o *Options) {
		if t > 0 {
			o.StopTimeout = t
		}
	}
}
