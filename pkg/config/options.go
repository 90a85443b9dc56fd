package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Option 配置选项函数
type Option func(*manager)

// WithDefaults 设置默认值，key 使用 "." 分隔的路径
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithEnvPrefix 启用环境变量覆盖，例如 prefix=GACHA 时
// GACHA_REDIS_STANDALONE_ADDR 覆盖 redis.standalone.addr
func WithEnvPrefix(prefix string) Option {
	return func(m *manager) {
		if prefix == "" {
			return
		}
		m.v.SetEnvPrefix(prefix)
		m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		m.v.AutomaticEnv()
	}
}

// WithViper 使用自定义的 Viper 实例
func WithViper(v *viper.Viper) Option {
	return func(m *manager) {
		m.v = v
	}
}
