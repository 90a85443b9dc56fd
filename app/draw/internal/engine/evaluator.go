package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
)

// Evaluator 抽卡资格校验，只读，在加锁之前执行
type Evaluator struct {
	store GachaStore
}

func NewEvaluator(store GachaStore) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate 依次检查：卡池存在、用户已选地区、卡池可见、处于开放时间
func (e *Evaluator) Evaluate(ctx context.Context, userID int64, gachaID string, now time.Time) (*model.GachaConfig, error) {
	cfg, err := e.store.LoadGacha(ctx, gachaID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.NewDrawError(model.CodeUnknownGacha, "")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load gacha")
	}
	cfg.ID = gachaID

	region, err := e.store.UserRegion(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load user region")
	}
	if region == "" || region == "0" {
		return nil, model.NewDrawError(model.CodeRegionRequired, "")
	}

	if !cfg.Visible() {
		return nil, model.NewDrawError(model.CodeGachaHidden, "")
	}
	if !cfg.Active(now) {
		return nil, model.NewDrawError(model.CodeOutOfWindow, "")
	}
	return cfg, nil
}
