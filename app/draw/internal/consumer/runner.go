package consumer

import (
	"context"
	"sync"

	"github.com/lk2023060901/gachadraw/pkg/app"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/mq/kafka"
)

// Config 消费者配置
type Config struct {
	Enable      bool   `mapstructure:"enable"`
	GroupID     string `mapstructure:"group_id"`
	Concurrency int    `mapstructure:"concurrency"`
}

var _ app.Server = (*Runner)(nil)

// Runner 管理消费者组生命周期
type Runner struct {
	client     *kafka.Client
	dispatcher *Dispatcher
	cfg        Config
	logger     logger.Logger

	mu     sync.Mutex
	group  *kafka.ConsumerGroup
	cancel context.CancelFunc
}

func NewRunner(client *kafka.Client, d *Dispatcher, cfg Config, l logger.Logger) *Runner {
	return &Runner{
		client:     client,
		dispatcher: d,
		cfg:        cfg,
		logger:     l.Named("consumer.runner"),
	}
}

func (r *Runner) Start() error {
	if !r.cfg.Enable {
		r.logger.Info("event consumer disabled")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	group, err := r.client.Subscribe(r.dispatcher.Topics(), r.dispatcher.Handle,
		kafka.WithGroupID(r.cfg.GroupID),
		kafka.WithConcurrency(r.cfg.Concurrency),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := group.Start(ctx); err != nil {
		cancel()
		_ = group.Close()
		return err
	}
	r.group = group
	r.cancel = cancel
	return nil
}

func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.group == nil {
		return nil
	}
	r.cancel()
	err := r.group.Close()
	r.group = nil
	return err
}
