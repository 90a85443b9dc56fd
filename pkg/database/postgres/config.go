package postgres

import (
	"fmt"
	"net/url"
	"time"
)

// DBConfig 数据库实例配置
type DBConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	DBName   string `mapstructure:"db_name" json:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode" json:"ssl_mode"` // disable, require, verify-ca, verify-full
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxConns          int32         `mapstructure:"max_conns" json:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns" json:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime" json:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time" json:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period" json:"health_check_period"`
}

// Config PostgreSQL 配置
type Config struct {
	Standalone     *DBConfig     `mapstructure:"standalone" json:"standalone,omitempty"`
	Pool           PoolConfig    `mapstructure:"pool" json:"pool"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout" json:"query_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Standalone: &DBConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "gacha",
			SSLMode: "disable",
		},
		Pool: PoolConfig{
			MaxConns:          25,
			MinConns:          2,
			MaxConnLifetime:   time.Hour,
			MaxConnIdleTime:   30 * time.Minute,
			HealthCheckPeriod: time.Minute,
		},
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   10 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	db := c.Standalone
	if db == nil {
		return fmt.Errorf("%w: standalone config is required", ErrInvalidConfig)
	}
	if db.Host == "" || db.User == "" || db.DBName == "" {
		return fmt.Errorf("%w: host, user and db_name are required", ErrInvalidConfig)
	}
	if db.Port <= 0 || db.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, db.Port)
	}
	if c.Pool.MaxConns <= 0 || c.Pool.MinConns < 0 || c.Pool.MinConns > c.Pool.MaxConns {
		return fmt.Errorf("%w: invalid pool size min=%d max=%d", ErrInvalidConfig, c.Pool.MinConns, c.Pool.MaxConns)
	}
	return nil
}

// DSN 返回 postgres:// 形式的连接串，migrator 与 pgxpool 共用
func (c *Config) DSN() string {
	db := c.Standalone
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.User, db.Password),
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   "/" + db.DBName,
	}
	q := u.Query()
	if db.SSLMode != "" {
		q.Set("sslmode", db.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
