package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lk2023060901/gachadraw/pkg/config"
)

// Client PostgreSQL 客户端
type Client struct {
	pool *pgxpool.Pool
	cfg  *Config
}

// New 创建客户端并验证连通性
func New(cfg *Config) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(merged.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	poolCfg.MaxConns = merged.Pool.MaxConns
	poolCfg.MinConns = merged.Pool.MinConns
	poolCfg.MaxConnLifetime = merged.Pool.MaxConnLifetime
	poolCfg.MaxConnIdleTime = merged.Pool.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = merged.Pool.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), merged.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{pool: pool, cfg: merged}, nil
}

// Close 关闭连接池
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// Ping 检查连接
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// PoolStats 连接池状态
type PoolStats struct {
	AcquireCount    int64
	AcquireDuration time.Duration
	AcquiredConns   int32
	IdleConns       int32
	TotalConns      int32
	MaxConns        int32
}

// Stats 连接池状态
func (c *Client) Stats() PoolStats {
	s := c.pool.Stat()
	return PoolStats{
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration(),
		AcquiredConns:   s.AcquiredConns(),
		IdleConns:       s.IdleConns(),
		TotalConns:      s.TotalConns(),
		MaxConns:        s.MaxConns(),
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}
