package engine

import (
	"context"
	"time"

	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
)

// GachaStore 卡池配置与用户属性，只读
type GachaStore interface {
	// LoadGacha 不存在时返回 model.ErrNotFound
	LoadGacha(ctx context.Context, gachaID string) (*model.GachaConfig, error)
	// UserRegion 未设置时返回空串
	UserRegion(ctx context.Context, userID int64) (string, error)
	// DrawToken 用户当前的抽卡令牌，未设置时返回空串
	DrawToken(ctx context.Context, userID int64) (string, error)
}

// Locker 卡池互斥锁的存储实现
type Locker interface {
	// TryLock 单次尝试，被占用时返回 (nil, nil)
	TryLock(ctx context.Context, gachaID string) (Lease, error)
}

// Lease 已持有的锁
type Lease interface {
	Unlock(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// LimitTier 按用户计数的限购层级
type LimitTier int

const (
	// TierUserDaily 每人每日
	TierUserDaily LimitTier = 1
	// TierUserLifetime 每人累计
	TierUserLifetime LimitTier = 3
)

func (t LimitTier) String() string {
	switch t {
	case TierUserDaily:
		return "user_daily"
	case TierUserLifetime:
		return "user_lifetime"
	default:
		return "unknown"
	}
}

// LimitStore 限购状态读取
type LimitStore interface {
	// OccupiedSlots 返回 1..capacity 中已被该用户占用的槽位
	OccupiedSlots(ctx context.Context, gachaID string, tier LimitTier, userID int64, capacity int) (map[int]bool, error)
	// GlobalCount 当日全体已抽次数
	GlobalCount(ctx context.Context, gachaID string) (int64, error)
}

// BalanceStore 点数缓存
type BalanceStore interface {
	// Balance 未设置时返回 0
	Balance(ctx context.Context, userID int64) (int64, error)
}

// PoolStore 奖位序列
type PoolStore interface {
	Remaining(ctx context.Context, gachaID string) (int64, error)
	// Pop 从队首取出最多 n 个奖位
	Pop(ctx context.Context, gachaID string, n int) ([]*model.PrizeSlot, error)
	// Append 追加到队尾，循环卡池使用
	Append(ctx context.Context, gachaID string, slots []*model.PrizeSlot) error
	// PopPity 从保底序列取一个，序列为空时返回 (nil, nil)
	PopPity(ctx context.Context, gachaID string) (*model.PrizeSlot, error)
}

// PityStore 保底计数
type PityStore interface {
	PityCounter(ctx context.Context, userID int64, gachaID string) (int64, error)
	// PityResetPrizes 命中后清零计数的奖位 ID
	PityResetPrizes(ctx context.Context, gachaID string) (map[int64]struct{}, error)
}

// Settlement 校验全部通过后一次性提交的缓存写入
type Settlement struct {
	GachaID     string
	UserID      int64
	Reservation *Reservation
	Debit       int64
	// PityCounter 为 nil 表示未开启保底
	PityCounter *int64
}

// SettlementStore 提交结算
type SettlementStore interface {
	Commit(ctx context.Context, s *Settlement) error
}

// Catalog 展示信息
type Catalog interface {
	// Item 不存在时返回 model.ErrNotFound
	Item(ctx context.Context, itemID int64) (*model.ItemInfo, error)
	Video(ctx context.Context, videoID int64) (*model.VideoInfo, error)
	// ShippingWindow 系统配置的发货期限，未配置时返回 0
	ShippingWindow(ctx context.Context) (time.Duration, error)
}

// CollectionRepository 持久化获得的奖品
type CollectionRepository interface {
	// InsertBatch 单事务批量写入，按输入顺序返回记录 ID
	InsertBatch(ctx context.Context, records []*model.CollectionRecord) ([]int64, error)
}

// LedgerPort 点数流水通道
type LedgerPort interface {
	PublishDebit(ctx context.Context, msg *model.DebitMessage) error
}

// EventPort 抽卡事件通道
type EventPort interface {
	PublishInventory(ctx context.Context, msg *model.InventoryMessage) error
	PublishEmission(ctx context.Context, msg *model.EmissionMessage) error
	PublishHistory(ctx context.Context, msg *model.HistoryMessage) error
}

// NotifyPort 售罄通知
type NotifyPort interface {
	NotifySoldOut(ctx context.Context, msg *model.SoldOutMessage) error
}

// Store 缓存侧全部能力，Redis 适配器一次实现
type Store interface {
	GachaStore
	Locker
	LimitStore
	BalanceStore
	PoolStore
	PityStore
	SettlementStore
	Catalog
}
