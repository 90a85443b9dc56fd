package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager 配置管理器
type Manager interface {
	// LoadFile 加载配置文件，格式由扩展名决定
	LoadFile(path string) error
	// Unmarshal 解析整个配置
	Unmarshal(v any) error
	// UnmarshalKey 解析某个子树，例如 "redis" 或 "draw.lock"
	UnmarshalKey(key string, v any) error
	GetString(key string) string
	IsSet(key string) bool
	// Watch 监听配置文件变化，文件写入后依次触发回调
	Watch(callback func()) error
}

type manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	file      string
	watching  bool
	callbacks []func()
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	m.file = path
	return nil
}

func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) Watch(callback func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == "" {
		return ErrNoConfigFile
	}
	m.callbacks = append(m.callbacks, callback)
	if m.watching {
		return nil
	}
	m.watching = true

	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		m.mu.RLock()
		callbacks := append([]func(){}, m.callbacks...)
		m.mu.RUnlock()

		for _, cb := range callbacks {
			cb()
		}
	})
	m.v.WatchConfig()
	return nil
}
