package redis

import "time"

// Config Redis 配置（Standalone / Cluster 二选一）
type Config struct {
	Standalone *NodeConfig    `mapstructure:"standalone" json:"standalone,omitempty"`
	Cluster    *ClusterConfig `mapstructure:"cluster" json:"cluster,omitempty"`
	Pool       PoolConfig     `mapstructure:"pool" json:"pool"`
}

// NodeConfig 单节点配置
type NodeConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

// ClusterConfig 集群配置
type ClusterConfig struct {
	Addrs    []string `mapstructure:"addrs" json:"addrs"` // host:port
	Password string   `mapstructure:"password" json:"password"`
}

// PoolConfig 连接池配置
type PoolConfig struct {
	PoolSize        int           `mapstructure:"pool_size" json:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" json:"min_idle_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" json:"conn_max_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout" json:"pool_timeout"`
}

// DefaultConfig 本地单机默认配置
func DefaultConfig() *Config {
	return &Config{
		Standalone: &NodeConfig{Host: "localhost", Port: 6379},
		Pool: PoolConfig{
			PoolSize:     50,
			MinIdleConns: 5,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			PoolTimeout:  3 * time.Second,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if (c.Standalone == nil) == (c.Cluster == nil) {
		return ErrInvalidConfig
	}
	if c.Cluster != nil && len(c.Cluster.Addrs) == 0 {
		return ErrInvalidConfig
	}
	return nil
}

// IsCluster 是否为集群模式
func (c *Config) IsCluster() bool {
	return c.Cluster != nil
}
