package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Client Redis 客户端，对上层隐藏 go-redis 类型
type Client struct {
	rdb goredis.UniversalClient
	cfg *Config
}

// NewClient 创建 Redis 客户端，不主动连接，首次命令时建立连接
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg}
	p := cfg.Pool
	if cfg.IsCluster() {
		c.rdb = goredis.NewClusterClient(&goredis.ClusterOptions{
			Addrs:           cfg.Cluster.Addrs,
			Password:        cfg.Cluster.Password,
			PoolSize:        p.PoolSize,
			MinIdleConns:    p.MinIdleConns,
			MaxIdleConns:    p.MaxIdleConns,
			ConnMaxLifetime: p.ConnMaxLifetime,
			ConnMaxIdleTime: p.ConnMaxIdleTime,
			DialTimeout:     p.DialTimeout,
			ReadTimeout:     p.ReadTimeout,
			WriteTimeout:    p.WriteTimeout,
			PoolTimeout:     p.PoolTimeout,
		})
		return c, nil
	}

	c.rdb = goredis.NewClient(&goredis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Standalone.Host, cfg.Standalone.Port),
		Password:        cfg.Standalone.Password,
		DB:              cfg.Standalone.DB,
		PoolSize:        p.PoolSize,
		MinIdleConns:    p.MinIdleConns,
		MaxIdleConns:    p.MaxIdleConns,
		ConnMaxLifetime: p.ConnMaxLifetime,
		ConnMaxIdleTime: p.ConnMaxIdleTime,
		DialTimeout:     p.DialTimeout,
		ReadTimeout:     p.ReadTimeout,
		WriteTimeout:    p.WriteTimeout,
		PoolTimeout:     p.PoolTimeout,
	})
	return c, nil
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// PoolStats 连接池统计
type PoolStats struct {
	Hits       uint32
	Misses     uint32
	Timeouts   uint32
	TotalConns uint32
	IdleConns  uint32
	StaleConns uint32
}

// PoolStats 获取连接池统计
func (c *Client) PoolStats() PoolStats {
	s := c.rdb.PoolStats()
	return PoolStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
		StaleConns: s.StaleConns,
	}
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.rdb.Close()
}
