package kafka

import "time"

// Config Kafka 配置
type Config struct {
	// Brokers Kafka broker 地址列表
	Brokers []string `mapstructure:"brokers"`

	// Producer 生产者配置
	Producer ProducerConfig `mapstructure:"producer"`

	// Consumer 消费者配置
	Consumer ConsumerConfig `mapstructure:"consumer"`

	// SASL 认证配置（可选）
	SASL *SASLConfig `mapstructure:"sasl"`

	// TLS 配置（可选）
	TLS *TLSConfig `mapstructure:"tls"`
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	// Async 异步发送，默认同步等待 broker 确认
	Async bool `mapstructure:"async"`

	// BatchSize 批量大小（异步模式下，累积多少条消息后发送）
	BatchSize int `mapstructure:"batch_size"`

	// BatchTimeout 批量超时时间（异步模式下，最长等待时间）
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`

	// MaxRetries 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`

	// RetryBackoff 重试间隔
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// RequiredAcks 确认模式
	// 0: NoResponse - 不等待确认
	// 1: Leader - 等待 Leader 确认
	// -1: All - 等待所有副本确认
	RequiredAcks int `mapstructure:"required_acks"`

	// Compression 压缩算法: none, gzip, snappy, lz4, zstd
	Compression string `mapstructure:"compression"`

	// WriteTimeout 写超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ReadTimeout 读超时（等待 broker 响应）
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	// GroupID 消费者组 ID
	GroupID string `mapstructure:"group_id"`

	// MinBytes 最小拉取字节数（达到此值才返回）
	MinBytes int `mapstructure:"min_bytes"`

	// MaxBytes 最大拉取字节数
	MaxBytes int `mapstructure:"max_bytes"`

	// MaxWait 最大等待时间（未达到 MinBytes 时最长等待时间）
	MaxWait time.Duration `mapstructure:"max_wait"`

	// CommitInterval 自动提交间隔（0 表示手动提交）
	CommitInterval time.Duration `mapstructure:"commit_interval"`

	// StartOffset 起始偏移量
	// -1: Latest - 从最新位置开始
	// -2: Earliest - 从最早位置开始
	StartOffset int64 `mapstructure:"start_offset"`

	// HeartbeatInterval 心跳间隔
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// SessionTimeout 会话超时（超过此时间未收到心跳，消费者被踢出组）
	SessionTimeout time.Duration `mapstructure:"session_timeout"`

	// RebalanceTimeout 重平衡超时
	RebalanceTimeout time.Duration `mapstructure:"rebalance_timeout"`

	// RetryBackoff 消费失败重试间隔
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// MaxRetries 消费失败最大重试次数
	MaxRetries int `mapstructure:"max_retries"`

	// Concurrency 拉取协程数，由 ants 协程池承载
	Concurrency int `mapstructure:"concurrency"`

	// FetchTimeout 单次拉取超时，到期后检查停止信号
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// SASLConfig SASL 认证配置
type SASLConfig struct {
	// Mechanism 认证机制: PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Mechanism string `mapstructure:"mechanism"`

	// Username 用户名
	Username string `mapstructure:"username"`

	// Password 密码
	Password string `mapstructure:"password"`
}

// TLSConfig TLS 配置
type TLSConfig struct {
	// Enable 是否启用 TLS
	Enable bool `mapstructure:"enable"`

	// CertFile 客户端证书文件
	CertFile string `mapstructure:"cert_file"`

	// KeyFile 客户端私钥文件
	KeyFile string `mapstructure:"key_file"`

	// CAFile CA 证书文件
	CAFile string `mapstructure:"ca_file"`

	// InsecureSkipVerify 是否跳过证书验证
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Brokers: []string{"localhost:9092"},
		Producer: ProducerConfig{
			Async:        false,
			BatchSize:    100,
			BatchTimeout: 1 * time.Second,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			RequiredAcks: -1, // All
			Compression:  "snappy",
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
		},
		Consumer: ConsumerConfig{
			GroupID:           "gacha-draw",
			MinBytes:          10 * 1024,        // 10KB
			MaxBytes:          10 * 1024 * 1024, // 10MB
			MaxWait:           500 * time.Millisecond,
			CommitInterval:    0,  // 手动提交
			StartOffset:       -2, // Earliest
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
			RebalanceTimeout:  60 * time.Second,
			RetryBackoff:      100 * time.Millisecond,
			MaxRetries:        3,
			Concurrency:       1,
			FetchTimeout:      5 * time.Second,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}

	for _, b := range c.Brokers {
		if b == "" {
			return ErrNoBrokers
		}
	}

	if c.Consumer.GroupID == "" {
		return ErrEmptyGroupID
	}

	if c.SASL != nil && c.SASL.Username != "" {
		switch c.SASL.Mechanism {
		case "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return ErrUnknownMechanism
		}
	}

	return nil
}
