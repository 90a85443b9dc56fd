package engine

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

type runVerdict int

const (
	runFound runVerdict = iota
	// runExhausted 没有任何空闲槽位
	runExhausted
	// runPartial 有空闲槽位但凑不出连续 need 个
	runPartial
)

// findFreeRun 在 1..capacity 中寻找第一段长度为 need 的连续空闲槽位
func findFreeRun(occupied map[int]bool, capacity, need int) (int, runVerdict) {
	free, start, run := 0, 0, 0
	for i := 1; i <= capacity; i++ {
		if occupied[i] {
			run = 0
			continue
		}
		free++
		if run == 0 {
			start = i
		}
		run++
		if need > 0 && run >= need {
			return start, runFound
		}
	}
	switch {
	case free == 0:
		return 0, runExhausted
	case need <= 0:
		return 0, runFound
	default:
		return 0, runPartial
	}
}

// SlotMark 一个待写入的限购槽位
type SlotMark struct {
	Tier  LimitTier
	Index int
}

// Reservation 缓冲的限购占用，只有整个抽卡通过校验后才提交
type Reservation struct {
	Slots       []SlotMark
	GlobalIncr  int64
	GlobalLimit bool
}

// Empty 是否没有需要写入的内容
func (r *Reservation) Empty() bool {
	return r == nil || (len(r.Slots) == 0 && r.GlobalIncr == 0)
}

type tierSpec struct {
	tier    LimitTier
	cap     int
	capCode model.Code
	partial model.Code
}

// RateLimiter 三层限购校验
type RateLimiter struct {
	store  LimitStore
	logger logger.Logger
}

func NewRateLimiter(store LimitStore, l logger.Logger) *RateLimiter {
	return &RateLimiter{store: store, logger: l.Named("engine.limit")}
}

// Check 依次检查每人每日、每人累计、全体每日上限，返回待提交的占用
func (r *RateLimiter) Check(ctx context.Context, cfg *model.GachaConfig, userID int64, execNum int) (*Reservation, error) {
	resv := &Reservation{}

	tiers := []tierSpec{
		{tier: TierUserDaily, cap: cfg.LimitOncePerDay, capCode: model.CodeUserDailyCap, partial: model.CodeUserDailyPartial},
		{tier: TierUserLifetime, cap: cfg.LimitOnce, capCode: model.CodeUserLifetimeCap, partial: model.CodeUserLifetimePartial},
	}
	for _, t := range tiers {
		if t.cap < 1 {
			continue
		}
		occupied, err := r.store.OccupiedSlots(ctx, cfg.ID, t.tier, userID, t.cap)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s slots", t.tier)
		}
		start, verdict := findFreeRun(occupied, t.cap, execNum)
		switch verdict {
		case runExhausted:
			return nil, model.NewDrawError(t.capCode, "")
		case runPartial:
			return nil, model.NewDrawError(t.partial, "")
		}
		for i := 0; i < execNum; i++ {
			resv.Slots = append(resv.Slots, SlotMark{Tier: t.tier, Index: start + i})
		}
	}

	if limit := int64(cfg.LimitEveryonePerDay); limit >= 1 {
		count, err := r.store.GlobalCount(ctx, cfg.ID)
		if err != nil {
			return nil, errors.Wrap(err, "read global count")
		}
		if count >= limit {
			return nil, model.NewDrawError(model.CodeGlobalDailyCap, "")
		}
		if count+int64(execNum) > limit {
			return nil, model.NewDrawError(model.CodeGlobalDailyPartial, "")
		}
		resv.GlobalLimit = true
		resv.GlobalIncr = int64(execNum)
	}

	r.logger.DebugContext(ctx, "limits passed", "gacha_id", cfg.ID, "slots", len(resv.Slots), "global_incr", resv.GlobalIncr)
	return resv, nil
}
