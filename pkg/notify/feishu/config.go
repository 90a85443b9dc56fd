package feishu

import (
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/gachadraw/pkg/notify"
)

// Config 飞书自定义机器人
type Config struct {
	// WebhookURL 为空时不发送告警
	WebhookURL string `mapstructure:"webhook_url"`
	// Secret 签名校验密钥，可选
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.WebhookURL, "http://") && !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("%w: webhook_url must start with http:// or https://", notify.ErrInvalidConfig)
	}
	return nil
}
