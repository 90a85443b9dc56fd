// Package idgen 分布式唯一 ID
package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

// Generator ID 生成器
type Generator interface {
	NextID() (int64, error)
}

// StringFunc 十进制字符串形式的 ID，生成失败时退化为 uuid
func StringFunc(g Generator) func() string {
	return func() string {
		id, err := g.NextID()
		if err != nil {
			return uuid.NewString()
		}
		return strconv.FormatInt(id, 10)
	}
}
