// Package notify 运营告警
package notify

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("notify: invalid config")

// Level 告警级别
type Level string

const (
	LevelCritical Level = "critical"
	LevelWarning  Level = "warning"
	LevelInfo     Level = "info"
)

// Alert 平台无关的告警内容
type Alert struct {
	Level    Level
	Service  string
	Summary  string
	Labels   map[string]string
	StartsAt time.Time
	AtAll    bool
}

// Notifier 告警通道
type Notifier interface {
	Send(ctx context.Context, alert *Alert) error
	Name() string
}

// Noop 未配置告警通道时使用
type Noop struct{}

func (Noop) Send(context.Context, *Alert) error { return nil }
func (Noop) Name() string                       { return "noop" }
