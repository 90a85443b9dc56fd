// Package lru 进程内带过期时间的 LRU 缓存
package lru

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config LRU 配置
type Config struct {
	MaxSize int           `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{MaxSize: 10000, TTL: time.Minute}
}

// Cache 基于 hashicorp expirable LRU 的封装，补充原子 GetOrCreate
type Cache[K comparable, V any] struct {
	mu  sync.Mutex
	lru *expirable.LRU[K, V]
}

// Option 缓存选项
type Option[K comparable, V any] func(*options[K, V])

type options[K comparable, V any] struct {
	onEvict func(K, V)
}

// WithOnEvict 设置淘汰回调
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(o *options[K, V]) {
		o.onEvict = fn
	}
}

// New 创建缓存，cfg 为 nil 时使用默认配置
func New[K comparable, V any](cfg *Config, opts ...Option[K, V]) *Cache[K, V] {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var o options[K, V]
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		lru: expirable.NewLRU[K, V](cfg.MaxSize, o.onEvict, cfg.TTL),
	}
}

// Get 获取值
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set 设置值
func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// GetOrCreate 不存在时调用 create 并写入
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.lru.Get(key); ok {
		return v
	}
	v := create()
	c.lru.Add(key, v)
	return v
}

// Delete 删除
func (c *Cache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Len 当前条目数
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Purge 清空
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}
