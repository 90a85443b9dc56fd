package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Pipeline 批量命令，Exec 时一次发送
// 命令以链式方式追加，结果通过 Exec 返回的错误统一判断
type Pipeline struct {
	ctx context.Context
	p   goredis.Pipeliner
}

// Pipeline 普通管道（非事务）
func (c *Client) Pipeline(ctx context.Context) *Pipeline {
	return &Pipeline{ctx: ctx, p: c.rdb.Pipeline()}
}

// TxPipeline MULTI/EXEC 事务管道，集群模式下要求所有键位于同一 slot
func (c *Client) TxPipeline(ctx context.Context) *Pipeline {
	return &Pipeline{ctx: ctx, p: c.rdb.TxPipeline()}
}

// Batch 提交一组写命令：单机模式使用 MULTI/EXEC 保证原子性，
// 集群模式下键分布在不同 slot，退化为普通管道
func (c *Client) Batch(ctx context.Context, fn func(p *Pipeline)) error {
	var p *Pipeline
	if c.cfg.IsCluster() {
		p = c.Pipeline(ctx)
	} else {
		p = c.TxPipeline(ctx)
	}
	fn(p)
	return p.Exec()
}

func (p *Pipeline) Set(key string, value interface{}, expiration time.Duration) *Pipeline {
	p.p.Set(p.ctx, key, value, expiration)
	return p
}

func (p *Pipeline) IncrBy(key string, value int64) *Pipeline {
	p.p.IncrBy(p.ctx, key, value)
	return p
}

func (p *Pipeline) DecrBy(key string, value int64) *Pipeline {
	p.p.DecrBy(p.ctx, key, value)
	return p
}

func (p *Pipeline) SAdd(key string, members ...interface{}) *Pipeline {
	p.p.SAdd(p.ctx, key, members...)
	return p
}

func (p *Pipeline) RPush(key string, values ...interface{}) *Pipeline {
	p.p.RPush(p.ctx, key, values...)
	return p
}

func (p *Pipeline) Expire(key string, expiration time.Duration) *Pipeline {
	p.p.Expire(p.ctx, key, expiration)
	return p
}

func (p *Pipeline) Del(keys ...string) *Pipeline {
	p.p.Del(p.ctx, keys...)
	return p
}

// Len 已追加的命令数
func (p *Pipeline) Len() int {
	return p.p.Len()
}

// Exec 执行所有命令，返回第一个失败命令的错误
func (p *Pipeline) Exec() error {
	if p.p.Len() == 0 {
		return nil
	}
	cmds, err := p.p.Exec(p.ctx)
	if err != nil && !errors.Is(err, goredis.Nil) {
		for _, cmd := range cmds {
			if cerr := cmd.Err(); cerr != nil && !errors.Is(cerr, goredis.Nil) {
				return fmt.Errorf("pipeline %s failed: %w", cmd.Name(), cerr)
			}
		}
		return fmt.Errorf("pipeline exec failed: %w", err)
	}
	return nil
}

// Discard 丢弃已追加的命令
func (p *Pipeline) Discard() {
	p.p.Discard()
}

// SIsMemberBatch 在一次往返中检查 member 是否属于每个 key
func (c *Client) SIsMemberBatch(ctx context.Context, keys []string, member interface{}) ([]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pipe := c.rdb.Pipeline()
	cmds := make([]*goredis.BoolCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.SIsMember(ctx, k, member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("sismember batch failed: %w", err)
	}

	out := make([]bool, len(keys))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}
