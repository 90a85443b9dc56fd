package sentry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// Reporter 错误上报接口，业务代码只依赖此接口
type Reporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
	CapturePanic(ctx context.Context, recovered any, tags map[string]string)
}

var _ Reporter = (*Client)(nil)

// Client 持有独立 Hub 的 Sentry 客户端
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	captured atomic.Uint64
}

// New 创建客户端
func New(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sc, err := sentry.NewClient(cfg.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}
	hub := sentry.NewHub(sc, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range cfg.Tags {
			scope.SetTag(k, v)
		}
	})
	return &Client{hub: hub, config: cfg}, nil
}

// Enabled DSN 是否已配置
func (c *Client) Enabled() bool {
	return c.config.DSN != ""
}

// CaptureError 上报错误，附带本次请求的标签
func (c *Client) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil || c.closed.Load() {
		return
	}
	c.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetContext("request", sentry.Context{"has_deadline": hasDeadline(ctx)})
		if id := c.hub.CaptureException(err); id != nil {
			c.captured.Add(1)
		}
	})
}

// CapturePanic 上报已 recover 的 panic，不重新抛出
func (c *Client) CapturePanic(ctx context.Context, recovered any, tags map[string]string) {
	if recovered == nil || c.closed.Load() {
		return
	}
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if id := c.hub.RecoverWithContext(ctx, recovered); id != nil {
			c.captured.Add(1)
		}
	})
}

// Captured 已上报事件数
func (c *Client) Captured() uint64 {
	return c.captured.Load()
}

// Close 等待事件发送完成
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}

func hasDeadline(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Deadline()
	return ok
}
