package main

import (
	"github.com/lk2023060901/gachadraw/app/draw/internal/consumer"
	"github.com/lk2023060901/gachadraw/app/draw/internal/engine"
	"github.com/lk2023060901/gachadraw/app/draw/internal/job"
	"github.com/lk2023060901/gachadraw/app/draw/internal/publisher"
	"github.com/lk2023060901/gachadraw/app/draw/internal/store"
	"github.com/lk2023060901/gachadraw/pkg/app"
	"github.com/lk2023060901/gachadraw/pkg/config"
	"github.com/lk2023060901/gachadraw/pkg/database/postgres"
	"github.com/lk2023060901/gachadraw/pkg/database/redis"
	"github.com/lk2023060901/gachadraw/pkg/idgen"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/mq/kafka"
	"github.com/lk2023060901/gachadraw/pkg/notify/feishu"
	"github.com/lk2023060901/gachadraw/pkg/otel"
	"github.com/lk2023060901/gachadraw/pkg/prometheus"
	"github.com/lk2023060901/gachadraw/pkg/security"
	"github.com/lk2023060901/gachadraw/pkg/sentry"
	"github.com/lk2023060901/gachadraw/pkg/web"
)

// Config 定义抽卡服务的完整配置结构
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// HTTP 服务
	Web web.Config         `mapstructure:"web"`
	JWT security.JWTConfig `mapstructure:"jwt"`

	// 存储
	Redis    redis.Config    `mapstructure:"redis"`
	Database postgres.Config `mapstructure:"database"`
	Store    store.Config    `mapstructure:"store"`

	// 消息
	Kafka    kafka.Config     `mapstructure:"kafka"`
	Topics   publisher.Topics `mapstructure:"topics"`
	Consumer consumer.Config  `mapstructure:"consumer"`

	// 抽卡参数，支持热更新
	Draw  engine.Settings `mapstructure:"draw"`
	IDGen idgen.Config    `mapstructure:"idgen"`

	DailySweep job.Config `mapstructure:"daily_sweep"`

	// 可观测性
	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Otel       otel.Config       `mapstructure:"otel"`
	Sentry     sentry.Config     `mapstructure:"sentry"`

	// 售罄告警
	Notify struct {
		Feishu feishu.Config `mapstructure:"feishu"`
	} `mapstructure:"notify"`
}

// drawSettings 未配置的项使用默认值
func drawSettings(cfg *Config) *engine.Settings {
	s, err := config.MergeConfig(engine.DefaultSettings(), &cfg.Draw)
	if err != nil {
		return engine.DefaultSettings()
	}
	s.VerifyDrawToken = cfg.Draw.VerifyDrawToken
	return s
}

func main() {
	var cfg Config

	// 1. 加载配置
	mgr, err := app.LoadConfig(&cfg)
	if err != nil {
		panic(err)
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log, logger.WithHooks(logger.SensitiveDataHook("authorization", "draw_token", "password")))
	if err != nil {
		panic(err)
	}

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, mgr, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	// 4. 运行服务
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
