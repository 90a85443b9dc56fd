//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/lk2023060901/gachadraw/app/draw/internal/dao"
	"github.com/lk2023060901/gachadraw/app/draw/internal/engine"
	"github.com/lk2023060901/gachadraw/app/draw/internal/handler"
	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/pkg/app"
	"github.com/lk2023060901/gachadraw/pkg/config"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/sentry"
)

func InitApp(cfg *Config, mgr config.Manager, l logger.Logger) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		provideAppOptions,
		app.ProviderSet,

		// 2. 可观测性
		providePrometheus,
		metrics.New,
		provideTracer,
		provideSentry,
		wire.Bind(new(sentry.Reporter), new(*sentry.Client)),

		// 3. 存储
		provideRedis,
		providePostgres,
		provideStore,
		dao.NewCollectionDAO,
		dao.NewLedgerDAO,

		// 4. 消息
		provideKafka,
		providePublisher,
		provideNotifier,
		provideDispatcher,
		provideConsumerRunner,

		// 5. 抽卡引擎
		provideIDGenerator,
		provideEngine,
		wire.Bind(new(handler.Drawer), new(*engine.Engine)),

		// 6. HTTP
		provideJWT,
		handler.NewDrawHandler,
		provideHealthHandler,
		provideWebServer,

		// 7. 定时任务
		provideSweeper,

		// 8. 组装
		provideAppComponents,
		provideApplication,
	))
}
