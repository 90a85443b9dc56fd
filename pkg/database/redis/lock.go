package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 10 * time.Second

const (
	unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

	refreshScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end`
)

// Lock 单节点分布式锁
// 锁值为随机 token，只有持有者可以释放或续期；ttl 到期后锁自动失效
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// NewLock 创建锁，ttl <= 0 时使用默认 10s
func NewLock(client *Client, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{
		client: client,
		key:    key,
		value:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Key 锁的键
func (l *Lock) Key() string { return l.key }

// Token 锁持有者 token
func (l *Lock) Token() string { return l.value }

// TTL 锁租期
func (l *Lock) TTL() time.Duration { return l.ttl }

// TryLock 非阻塞获取锁，单次 SET NX PX
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to try lock: %w", err)
	}
	return ok, nil
}

// Unlock 原子地比较 token 并删除
func (l *Lock) Unlock(ctx context.Context) error {
	n, err := l.client.rdb.Eval(ctx, unlockScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Refresh 续期到完整 ttl
func (l *Lock) Refresh(ctx context.Context) error {
	n, err := l.client.rdb.Eval(ctx, refreshScript, []string{l.key}, l.value, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to refresh lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
