// Package job 抽卡服务的定时任务
package job

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/pkg/app"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Config 每日限购清理配置
type Config struct {
	Enable bool `mapstructure:"enable"`
	// Schedule 标准 5 段 cron 表达式
	Schedule string `mapstructure:"schedule"`
	// Timezone 为空时使用本地时区
	Timezone  string        `mapstructure:"timezone"`
	BatchSize int64         `mapstructure:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DefaultConfig 每天 0 点执行
func DefaultConfig() Config {
	return Config{
		Enable:    true,
		Schedule:  "0 0 * * *",
		BatchSize: 500,
		Timeout:   5 * time.Minute,
	}
}

// KeyStore 由 *redis.Client 实现
type KeyStore interface {
	ScanKeys(ctx context.Context, match string, batch int64, fn func(keys []string) error) error
	Del(ctx context.Context, keys ...string) (int64, error)
}

var _ app.Server = (*DailySweeper)(nil)

// DailySweeper 清理按日计数的限购键
type DailySweeper struct {
	store    KeyStore
	patterns []string
	cfg      Config
	logger   logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewDailySweeper(store KeyStore, patterns []string, cfg Config, l logger.Logger) *DailySweeper {
	def := DefaultConfig()
	if cfg.Schedule == "" {
		cfg.Schedule = def.Schedule
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &DailySweeper{
		store:    store,
		patterns: patterns,
		cfg:      cfg,
		logger:   l.Named("job.daily_sweep"),
	}
}

// Sweep 删除匹配的键，返回删除数量
func (s *DailySweeper) Sweep(ctx context.Context) (int64, error) {
	var total int64
	for _, pattern := range s.patterns {
		err := s.store.ScanKeys(ctx, pattern, s.cfg.BatchSize, func(keys []string) error {
			n, err := s.store.Del(ctx, keys...)
			total += n
			return err
		})
		if err != nil {
			return total, errors.Wrapf(err, "sweep %s", pattern)
		}
	}
	return total, nil
}

func (s *DailySweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("daily limit sweep failed", "deleted", n, "error", err)
		return
	}
	s.logger.Info("daily limit sweep finished", "deleted", n, "duration", time.Since(start))
}

func (s *DailySweeper) location() (*time.Location, error) {
	if s.cfg.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.cfg.Timezone)
}

func (s *DailySweeper) Start() error {
	if !s.cfg.Enable {
		s.logger.Info("daily limit sweep disabled")
		return nil
	}

	loc, err := s.location()
	if err != nil {
		return errors.Wrap(err, "load sweep timezone")
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(s.cfg.Schedule, s.run); err != nil {
		return errors.Wrapf(err, "invalid sweep schedule %q", s.cfg.Schedule)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.logger.Info("daily limit sweep scheduled", "schedule", s.cfg.Schedule, "timezone", loc.String())
	return nil
}

// Stop 等待正在执行的清理结束
func (s *DailySweeper) Stop() error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	return nil
}
