package engine

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

// PrizePool 按 FIFO 从卡池取奖位
type PrizePool struct {
	store  PoolStore
	logger logger.Logger
}

func NewPrizePool(store PoolStore, l logger.Logger) *PrizePool {
	return &PrizePool{store: store, logger: l.Named("engine.pool")}
}

// Draw 取出 execNum 个奖位，循环卡池立即回填到队尾
func (p *PrizePool) Draw(ctx context.Context, cfg *model.GachaConfig, execNum int) ([]*model.PrizeSlot, error) {
	slots, err := p.store.Pop(ctx, cfg.ID, execNum)
	if err != nil {
		return nil, errors.Wrap(err, "pop prize slots")
	}
	if len(slots) < execNum {
		// 持锁期间库存已校验，出现说明卡池被外部改动
		p.logger.ErrorContext(ctx, "prize pool shorter than checked", "gacha_id", cfg.ID, "want", execNum, "got", len(slots))
		if cfg.LoopFlag {
			if err := p.store.Append(ctx, cfg.ID, slots); err != nil {
				return nil, errors.Wrap(err, "restore loop slots")
			}
		}
		return nil, model.NewDrawError(model.CodeInsufficientStock, "pool drained concurrently")
	}
	if cfg.LoopFlag && len(slots) > 0 {
		if err := p.store.Append(ctx, cfg.ID, slots); err != nil {
			return nil, errors.Wrap(err, "append loop slots")
		}
	}
	return slots, nil
}

// Remaining 卡池剩余数
func (p *PrizePool) Remaining(ctx context.Context, gachaID string) (int64, error) {
	n, err := p.store.Remaining(ctx, gachaID)
	if err != nil {
		return 0, errors.Wrap(err, "read remaining")
	}
	return n, nil
}

// PityOutcome 保底结算结果
type PityOutcome struct {
	// Slot 触发保底时取出的奖位
	Slot    *model.PrizeSlot
	Counter int64
}

// PityTracker 个人保底
type PityTracker struct {
	store  PityStore
	pool   PoolStore
	logger logger.Logger
}

func NewPityTracker(store PityStore, pool PoolStore, l logger.Logger) *PityTracker {
	return &PityTracker{store: store, pool: pool, logger: l.Named("engine.pity")}
}

// advancePity 逐个奖位推进计数，命中重置奖位清零；整批结算完再与阈值比较
func advancePity(counter int64, resets map[int64]struct{}, slots []*model.PrizeSlot) int64 {
	for _, s := range slots {
		if _, ok := resets[s.PrizeID]; ok {
			counter = 0
		} else {
			counter++
		}
	}
	return counter
}

// Apply 未开启保底时返回 nil
func (t *PityTracker) Apply(ctx context.Context, cfg *model.GachaConfig, userID int64, slots []*model.PrizeSlot) (*PityOutcome, error) {
	if !cfg.PityEnabled() {
		return nil, nil
	}
	counter, err := t.store.PityCounter(ctx, userID, cfg.ID)
	if err != nil {
		return nil, errors.Wrap(err, "read pity counter")
	}
	resets, err := t.store.PityResetPrizes(ctx, cfg.ID)
	if err != nil {
		return nil, errors.Wrap(err, "read pity reset prizes")
	}

	out := &PityOutcome{Counter: advancePity(counter, resets, slots)}
	if out.Counter < int64(cfg.LimitCount) {
		return out, nil
	}

	slot, err := t.pool.PopPity(ctx, cfg.ID)
	if err != nil {
		return nil, errors.Wrap(err, "pop pity slot")
	}
	if slot == nil {
		// 保底序列补货后下一次抽卡再触发
		t.logger.WarnContext(ctx, "pity sequence empty", "gacha_id", cfg.ID, "user_id", userID, "counter", out.Counter)
		return out, nil
	}
	out.Slot = slot
	out.Counter = 0
	return out, nil
}

// SelectVideo 取最高演出优先级，相同时保留先出现的；有保底视频时以保底为准
// 返回视频 ID 与主序列中的最高优先级
func SelectVideo(slots []*model.PrizeSlot, pity *model.PrizeSlot) (videoID int64, priority int) {
	found := false
	for _, s := range slots {
		if !found || s.VideoPriority > priority {
			priority = s.VideoPriority
			videoID = s.VideoID
			found = true
		}
	}
	if pity != nil && pity.VideoID != 0 {
		videoID = pity.VideoID
	}
	return videoID, priority
}
