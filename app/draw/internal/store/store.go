// Package store 抽卡引擎的 Redis 适配器
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/engine"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/cache/lru"
	"github.com/lk2023060901/gachadraw/pkg/config"
	"github.com/lk2023060901/gachadraw/pkg/database/redis"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

// Config 缓存侧配置
type Config struct {
	// Env 键前缀中的环境 ID
	Env string `mapstructure:"env" validate:"required"`
	// Language 读取卡池与道具信息使用的语言 ID
	Language  string        `mapstructure:"language"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	ItemCache lru.Config    `mapstructure:"item_cache"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Env:       "dev",
		Language:  "1",
		LockTTL:   10 * time.Second,
		ItemCache: lru.Config{MaxSize: 4096, TTL: 30 * time.Second},
	}
}

var _ engine.Store = (*Store)(nil)

// Store 实现 engine.Store
type Store struct {
	client *redis.Client
	keys   Keyspace
	cfg    *Config
	items  *lru.Cache[int64, *model.ItemInfo]
	logger logger.Logger
}

// New 创建 Redis 适配器
func New(client *redis.Client, cfg *Config, l logger.Logger) (*Store, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge store config")
	}
	if err := config.NewValidator().Validate(merged); err != nil {
		return nil, err
	}
	return &Store{
		client: client,
		keys:   Keyspace{Env: merged.Env, Language: merged.Language},
		cfg:    merged,
		items:  lru.New[int64, *model.ItemInfo](&merged.ItemCache),
		logger: l.Named("store"),
	}, nil
}

// Keys 当前键空间
func (s *Store) Keys() Keyspace {
	return s.keys
}

func (s *Store) LoadGacha(ctx context.Context, gachaID string) (*model.GachaConfig, error) {
	cfg, err := redis.GetObject[model.GachaConfig](ctx, s.client, s.keys.GachaInfo(gachaID))
	if errors.Is(err, redis.ErrNil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cfg.ID = gachaID
	return cfg, nil
}

func (s *Store) getString(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key)
	if errors.Is(err, redis.ErrNil) {
		return "", nil
	}
	return v, err
}

func (s *Store) getInt64(ctx context.Context, key string) (int64, error) {
	v, err := s.getString(ctx, key)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return n, nil
}

func (s *Store) UserRegion(ctx context.Context, userID int64) (string, error) {
	return s.getString(ctx, s.keys.UserRegion(userID))
}

func (s *Store) DrawToken(ctx context.Context, userID int64) (string, error) {
	return s.getString(ctx, s.keys.DrawToken(userID))
}

// TryLock 锁值为随机 token，带 TTL
func (s *Store) TryLock(ctx context.Context, gachaID string) (engine.Lease, error) {
	lock := redis.NewLock(s.client, s.keys.Lock(gachaID), s.cfg.LockTTL)
	ok, err := lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}

func (s *Store) OccupiedSlots(ctx context.Context, gachaID string, tier engine.LimitTier, userID int64, capacity int) (map[int]bool, error) {
	keys := make([]string, capacity)
	for i := range keys {
		keys[i] = s.keys.LimitSlot(gachaID, int(tier), i+1)
	}
	member, err := s.client.SIsMemberBatch(ctx, keys, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool)
	for i, ok := range member {
		if ok {
			out[i+1] = true
		}
	}
	return out, nil
}

func (s *Store) GlobalCount(ctx context.Context, gachaID string) (int64, error) {
	return s.getInt64(ctx, s.keys.GlobalDaily(gachaID))
}

func (s *Store) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.getInt64(ctx, s.keys.UserPoint(userID))
}

// Commit 限购占用、点数扣减与保底计数在同一批次提交
func (s *Store) Commit(ctx context.Context, st *engine.Settlement) error {
	return s.client.Batch(ctx, func(p *redis.Pipeline) {
		if r := st.Reservation; r != nil {
			for _, m := range r.Slots {
				p.SAdd(s.keys.LimitSlot(st.GachaID, int(m.Tier), m.Index), st.UserID)
			}
			if r.GlobalIncr > 0 {
				p.IncrBy(s.keys.GlobalDaily(st.GachaID), r.GlobalIncr)
			}
		}
		if st.Debit > 0 {
			p.DecrBy(s.keys.UserPoint(st.UserID), st.Debit)
		}
		if st.PityCounter != nil {
			p.Set(s.keys.Pity(st.UserID, st.GachaID), *st.PityCounter, 0)
		}
	})
}
