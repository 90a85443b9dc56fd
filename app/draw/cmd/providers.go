package main

import (
	"time"

	"github.com/lk2023060901/gachadraw/app/draw/internal/consumer"
	"github.com/lk2023060901/gachadraw/app/draw/internal/dao"
	"github.com/lk2023060901/gachadraw/app/draw/internal/engine"
	"github.com/lk2023060901/gachadraw/app/draw/internal/handler"
	"github.com/lk2023060901/gachadraw/app/draw/internal/job"
	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/app/draw/internal/publisher"
	"github.com/lk2023060901/gachadraw/app/draw/internal/store"
	"github.com/lk2023060901/gachadraw/pkg/app"
	"github.com/lk2023060901/gachadraw/pkg/config"
	"github.com/lk2023060901/gachadraw/pkg/database/postgres"
	"github.com/lk2023060901/gachadraw/pkg/database/redis"
	"github.com/lk2023060901/gachadraw/pkg/idgen"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/mq/kafka"
	"github.com/lk2023060901/gachadraw/pkg/notify"
	"github.com/lk2023060901/gachadraw/pkg/notify/feishu"
	"github.com/lk2023060901/gachadraw/pkg/otel"
	"github.com/lk2023060901/gachadraw/pkg/prometheus"
	"github.com/lk2023060901/gachadraw/pkg/security"
	"github.com/lk2023060901/gachadraw/pkg/sentry"
	"github.com/lk2023060901/gachadraw/pkg/web"
	"github.com/lk2023060901/gachadraw/pkg/web/middleware"
)

const kafkaTracer = "gacha.kafka"

func provideRedis(cfg *Config) (*redis.Client, func(), error) {
	c, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

func providePostgres(cfg *Config) (*postgres.Client, func(), error) {
	c, err := postgres.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// provideKafka 生产端注入追踪头，消费端依次恢复 panic、提取追踪、记录日志与重试
func provideKafka(cfg *Config, l logger.Logger) (*kafka.Client, func(), error) {
	kl := l.Named("kafka")
	c, err := kafka.New(&cfg.Kafka,
		kafka.WithLogger(kl),
		kafka.WithProducerMiddleware(
			kafka.ProducerRecoveryMiddleware(kl),
			kafka.ProducerTracingMiddleware(kafkaTracer),
			kafka.ProducerLoggingMiddleware(kl),
		),
		kafka.WithConsumerMiddleware(
			kafka.RecoveryMiddleware(kl),
			kafka.TracingMiddleware(kafkaTracer),
			kafka.LoggingMiddleware(kl),
			kafka.RetryMiddleware(cfg.Kafka.Consumer.MaxRetries, cfg.Kafka.Consumer.RetryBackoff),
		),
	)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

func provideTracer(cfg *Config) (*otel.TracerProvider, func(), error) {
	tp, err := otel.New(&cfg.Otel)
	if err != nil {
		return nil, nil, err
	}
	return tp, func() { _ = tp.Close() }, nil
}

func provideSentry(cfg *Config) (*sentry.Client, func(), error) {
	c, err := sentry.New(&cfg.Sentry)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

func providePrometheus(cfg *Config) (*prometheus.Client, error) {
	return prometheus.New(&cfg.Prometheus)
}

func provideJWT(cfg *Config) (*security.JWTManager, error) {
	return security.NewJWTManager(&cfg.JWT)
}

func provideStore(client *redis.Client, cfg *Config, l logger.Logger) (*store.Store, error) {
	return store.New(client, &cfg.Store, l)
}

func providePublisher(kc *kafka.Client, cfg *Config) *publisher.Publisher {
	return publisher.New(kc, cfg.Topics)
}

func provideIDGenerator(cfg *Config) (idgen.Generator, error) {
	return idgen.NewSonyflake(&cfg.IDGen)
}

func provideEngine(s *store.Store, collections *dao.CollectionDAO, pub *publisher.Publisher, ids idgen.Generator, cfg *Config, l logger.Logger) *engine.Engine {
	return engine.New(s, engine.Ports{
		Collections: collections,
		Ledger:      pub,
		Events:      pub,
		Notify:      pub,
		NewID:       idgen.StringFunc(ids),
	}, l, engine.WithSettings(drawSettings(cfg)))
}

// provideNotifier 未配置 webhook 时不发送告警
func provideNotifier(cfg *Config, l logger.Logger) (notify.Notifier, error) {
	if cfg.Notify.Feishu.WebhookURL == "" {
		l.Warn("feishu webhook not configured, sold out alerts disabled")
		return notify.Noop{}, nil
	}
	return feishu.NewAdapter(&cfg.Notify.Feishu)
}

func provideDispatcher(ledger *dao.LedgerDAO, pub *publisher.Publisher, alerts notify.Notifier, m *metrics.DrawMetrics, l logger.Logger) *consumer.Dispatcher {
	return consumer.NewDispatcher(ledger, pub.Topics(), alerts, m, l)
}

func provideConsumerRunner(kc *kafka.Client, d *consumer.Dispatcher, cfg *Config, l logger.Logger) *consumer.Runner {
	return consumer.NewRunner(kc, d, cfg.Consumer, l)
}

func provideSweeper(client *redis.Client, s *store.Store, cfg *Config, l logger.Logger) *job.DailySweeper {
	return job.NewDailySweeper(client, s.Keys().DailyLimitPatterns(), cfg.DailySweep, l)
}

// provideWebServer 挂载全局中间件并注册路由
func provideWebServer(
	cfg *Config,
	l logger.Logger,
	promClient *prometheus.Client,
	reporter *sentry.Client,
	jwt *security.JWTManager,
	draw *handler.DrawHandler,
	health *handler.HealthHandler,
) (*web.Server, error) {
	httpMetrics, err := middleware.NewHTTPMetrics(promClient)
	if err != nil {
		return nil, err
	}
	srv, err := web.NewServer(&cfg.Web, l, web.WithMiddleware(
		middleware.Recovery(l.Named("web.recovery"), reporter),
		middleware.Metrics(httpMetrics),
	))
	if err != nil {
		return nil, err
	}

	draw.Register(srv.Router(),
		middleware.Auth(&middleware.AuthConfig{JWTManager: jwt, OnError: handler.AuthError}),
		middleware.RateLimit(middleware.NewRateLimiter(&cfg.Web.RateLimit, l)),
	)
	health.Register(srv.Router(), promClient.Handler())
	return srv, nil
}

func provideHealthHandler(rc *redis.Client, pg *postgres.Client, kc *kafka.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(app.GetInfo().Version, map[string]handler.Checker{
		"redis":    rc.Ping,
		"postgres": pg.Ping,
		"kafka":    kc.HealthCheck,
	})
}

func provideAppOptions(l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
		app.WithStopTimeout(30 * time.Second),
	}
}

// settingsReloader 配置文件变化时热更新抽卡参数
type settingsReloader struct {
	mgr    config.Manager
	engine *engine.Engine
	logger logger.Logger
}

func (r *settingsReloader) Start() error {
	return r.mgr.Watch(func() {
		var fresh Config
		if err := r.mgr.UnmarshalKey("draw", &fresh.Draw); err != nil {
			r.logger.Error("reload config failed", "error", err)
			return
		}
		r.engine.UpdateSettings(drawSettings(&fresh))
	})
}

func (r *settingsReloader) Stop() error { return nil }

func provideAppComponents(
	mgr config.Manager,
	l logger.Logger,
	eng *engine.Engine,
	srv *web.Server,
	runner *consumer.Runner,
	sweeper *job.DailySweeper,
	_ *otel.TracerProvider,
) app.AppComponents {
	return app.AppComponents{
		Servers: []app.Server{
			&settingsReloader{mgr: mgr, engine: eng, logger: l.Named("config")},
			srv,
			runner,
			sweeper,
		},
	}
}

func provideApplication(base *app.BaseApp, comps app.AppComponents) app.Application {
	return app.InitApp(base, comps)
}
