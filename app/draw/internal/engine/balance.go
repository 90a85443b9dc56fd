package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

// CostFor 按模式计算花费与抽取次数
// 全部抽取时剩余数超过配置上限返回 208
func CostFor(cfg *model.GachaConfig, pattern model.Pattern, remaining int64) (cost int64, execNum int, err error) {
	switch pattern {
	case model.PatternSingle:
		return cfg.SinglePoint, 1, nil
	case model.PatternMulti:
		return cfg.ConsecutivePoint, cfg.ConsecutiveCount, nil
	case model.PatternAll:
		if remaining > cfg.AllRestCount {
			return 0, 0, model.NewDrawError(model.CodeInvalidDrawAll, "")
		}
		return cfg.SinglePoint * remaining, int(remaining), nil
	default:
		return 0, 0, model.NewDrawError(model.CodeInvalidParameter, "unknown pattern")
	}
}

// BalanceGuard 点数校验与扣减流水
type BalanceGuard struct {
	store  BalanceStore
	ledger LedgerPort
	newID  func() string
	logger logger.Logger
}

func NewBalanceGuard(store BalanceStore, ledger LedgerPort, newID func() string, l logger.Logger) *BalanceGuard {
	return &BalanceGuard{store: store, ledger: ledger, newID: newID, logger: l.Named("engine.balance")}
}

// Check 余额不足返回 201，不做任何修改
func (g *BalanceGuard) Check(ctx context.Context, userID, cost int64) (int64, error) {
	balance, err := g.store.Balance(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "read balance")
	}
	if cost > balance {
		return balance, model.NewDrawError(model.CodeInsufficientPoints, "")
	}
	return balance, nil
}

// Debit 发布扣减流水，失败返回 204
// 缓存扣减随结算批次提交
func (g *BalanceGuard) Debit(ctx context.Context, userID, cost int64, now time.Time) error {
	msg := &model.DebitMessage{
		DedupID:      g.newID(),
		UserID:       userID,
		Point:        cost,
		DetailStatus: model.DetailStatusDraw,
		ExecuteAt:    now.Unix(),
	}
	if err := g.ledger.PublishDebit(ctx, msg); err != nil {
		g.logger.ErrorContext(ctx, "publish debit failed", "user_id", userID, "point", cost, "error", err)
		return errors.WithSecondaryError(model.NewDrawError(model.CodeLedgerPublish, "debit"), err)
	}
	return nil
}
