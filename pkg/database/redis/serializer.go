package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetObject 读取并反序列化 JSON，键不存在时返回 ErrNil
func GetObject[T any](ctx context.Context, c *Client, key string) (*T, error) {
	val, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var obj T
	if err := json.Unmarshal([]byte(val), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object %s failed: %w", key, err)
	}
	return &obj, nil
}

// SetObject 序列化为 JSON 写入
func SetObject(ctx context.Context, c *Client, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal object failed: %w", err)
	}
	return c.Set(ctx, key, data, expiration)
}
