package prometheus

// Config Prometheus 配置
type Config struct {
	// Namespace 指标前缀
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	// Path 暴露在 web 服务上的路径
	Path string `mapstructure:"path"`

	EnableGoCollector      bool `mapstructure:"enable_go_collector"`
	EnableProcessCollector bool `mapstructure:"enable_process_collector"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace:              "gacha",
		Path:                   "/metrics",
		EnableGoCollector:      true,
		EnableProcessCollector: true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Namespace == "" || c.Path == "" {
		return ErrInvalidConfig
	}
	return nil
}
