package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func wrapNil(op string, err error) error {
	if errors.Is(err, goredis.Nil) {
		return ErrNil
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// ==================== String ====================

// Get 键不存在时返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", wrapNil("get", err)
	}
	return val, nil
}

// GetInt64 读取整数值，键不存在时返回 ErrNil
func (c *Client) GetInt64(ctx context.Context, key string) (int64, error) {
	val, err := c.rdb.Get(ctx, key).Int64()
	if err != nil {
		return 0, wrapNil("get", err)
	}
	return val, nil
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// SetNX 仅当键不存在时设置，返回是否设置成功
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("del failed: %w", err)
	}
	return n, nil
}

func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Exists(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("exists failed: %w", err)
	}
	return n, nil
}

func (c *Client) IncrBy(ctx context.Context, key string, value int64) (int64, error) {
	n, err := c.rdb.IncrBy(ctx, key, value).Result()
	if err != nil {
		return 0, fmt.Errorf("incrby failed: %w", err)
	}
	return n, nil
}

func (c *Client) DecrBy(ctx context.Context, key string, value int64) (int64, error) {
	n, err := c.rdb.DecrBy(ctx, key, value).Result()
	if err != nil {
		return 0, fmt.Errorf("decrby failed: %w", err)
	}
	return n, nil
}

// ==================== List ====================

func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return n, nil
}

// LPop 列表为空时返回 ErrNil
func (c *Client) LPop(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.LPop(ctx, key).Result()
	if err != nil {
		return "", wrapNil("lpop", err)
	}
	return val, nil
}

// LPopCount 从头部弹出最多 count 个元素，列表为空时返回 ErrNil
func (c *Client) LPopCount(ctx context.Context, key string, count int) ([]string, error) {
	vals, err := c.rdb.LPopCount(ctx, key, count).Result()
	if err != nil {
		return nil, wrapNil("lpop count", err)
	}
	return vals, nil
}

func (c *Client) RPush(ctx context.Context, key string, values ...interface{}) (int64, error) {
	n, err := c.rdb.RPush(ctx, key, values...).Result()
	if err != nil {
		return 0, fmt.Errorf("rpush failed: %w", err)
	}
	return n, nil
}

func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	return vals, nil
}

// ==================== Set ====================

func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	n, err := c.rdb.SAdd(ctx, key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("sadd failed: %w", err)
	}
	return n, nil
}

func (c *Client) SIsMember(ctx context.Context, key string, member interface{}) (bool, error) {
	ok, err := c.rdb.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("sismember failed: %w", err)
	}
	return ok, nil
}

// ==================== Keys ====================

// ScanKeys 按模式遍历所有匹配的键，集群模式下遍历每个主节点
func (c *Client) ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error {
	scanNode := func(ctx context.Context, node goredis.Cmdable) error {
		var cursor uint64
		for {
			keys, next, err := node.Scan(ctx, cursor, match, batch).Result()
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			if len(keys) > 0 {
				if err := fn(keys); err != nil {
					return err
				}
			}
			if next == 0 {
				return nil
			}
			cursor = next
		}
	}

	if cc, ok := c.rdb.(*goredis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
			return scanNode(ctx, node)
		})
	}
	return scanNode(ctx, c.rdb)
}

// ==================== Script ====================

// Eval 执行 Lua 脚本
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	v, err := c.rdb.Eval(ctx, script, keys, args...).Result()
	if err != nil {
		return nil, wrapNil("eval", err)
	}
	return v, nil
}
