package engine

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/otel"
)

const tracerName = "gacha.engine"

// Engine 抽卡执行引擎
// 同一卡池的奖位变更与限购提交由卡池锁串行化，不同卡池之间完全并行
type Engine struct {
	store     Store
	evaluator *Evaluator
	locks     *LockManager
	limiter   *RateLimiter
	balance   *BalanceGuard
	pool      *PrizePool
	pity      *PityTracker
	compiler  *ResultCompiler

	settings atomic.Pointer[Settings]
	now      func() time.Time
	logger   logger.Logger
}

// Option 引擎选项
type Option func(*Engine)

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSettings 初始参数
func WithSettings(s *Settings) Option {
	return func(e *Engine) {
		if s != nil {
			e.settings.Store(s)
		}
	}
}

// Ports 引擎依赖的外部通道
type Ports struct {
	Collections CollectionRepository
	Ledger      LedgerPort
	Events      EventPort
	Notify      NotifyPort
	// NewID 生成去重 ID，为空时使用 uuid
	NewID func() string
}

// New 组装引擎
func New(store Store, ports Ports, l logger.Logger, opts ...Option) *Engine {
	if l == nil {
		l = logger.NewNoop()
	}
	newID := ports.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	e := &Engine{
		store:     store,
		evaluator: NewEvaluator(store),
		locks:     NewLockManager(store, l),
		limiter:   NewRateLimiter(store, l),
		balance:   NewBalanceGuard(store, ports.Ledger, newID, l),
		pool:      NewPrizePool(store, l),
		pity:      NewPityTracker(store, store, l),
		compiler:  NewResultCompiler(store, ports.Collections, ports.Events, ports.Notify, newID, l),
		now:       time.Now,
		logger:    l.Named("engine"),
	}
	e.settings.Store(DefaultSettings())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpdateSettings 热更新参数，对之后开始的抽卡生效
func (e *Engine) UpdateSettings(s *Settings) {
	if s == nil {
		return
	}
	e.settings.Store(s)
	e.logger.Info("draw settings updated",
		"shipping_window", s.ShippingWindow,
		"verify_draw_token", s.VerifyDrawToken,
	)
}

// Settings 当前参数
func (e *Engine) Settings() *Settings {
	return e.settings.Load()
}

// NormalizeGachaID 去掉商品前缀 "p-"
func NormalizeGachaID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "p-")
}

// Draw 执行一次抽卡
// 资格校验 -> 加锁 -> 限购 -> 花费与余额 -> 库存 -> 扣减流水 -> 取奖位与保底 -> 提交缓存 -> 释放锁 -> 持久化与事件
func (e *Engine) Draw(ctx context.Context, req model.DrawRequest) (res *model.DrawResult, err error) {
	gachaID := NormalizeGachaID(req.GachaID)
	pattern := req.Pattern
	if pattern == 0 {
		pattern = model.PatternSingle
	}

	ctx, span := otel.StartSpan(ctx, tracerName, "draw", otel.SpanKindInternal,
		otel.String(otel.AttrGachaID, gachaID),
		otel.Int64(otel.AttrUserID, req.UserID),
		otel.Int(otel.AttrPattern, int(pattern)),
	)
	defer func() {
		if err != nil {
			span.SetAttributes(otel.Int(otel.AttrErrorCode, int(model.CodeOf(err))))
			otel.RecordError(span, err)
		}
		span.End()
	}()

	if req.UserID == 0 {
		return nil, model.NewDrawError(model.CodeUnauthenticated, "")
	}
	if gachaID == "" {
		return nil, model.NewDrawError(model.CodeInvalidParameter, "gacha id required")
	}
	if !pattern.Valid() {
		return nil, model.NewDrawError(model.CodeInvalidParameter, "unknown pattern")
	}

	settings := e.settings.Load()
	now := e.now()

	if settings.VerifyDrawToken {
		token, err := e.store.DrawToken(ctx, req.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "read draw token")
		}
		if token == "" || token != req.DrawToken {
			return nil, model.NewDrawError(model.CodeDrawTokenMismatch, "")
		}
	}

	cfg, err := e.evaluator.Evaluate(ctx, req.UserID, gachaID, now)
	if err != nil {
		return nil, err
	}

	held, err := e.locks.TryAcquire(ctx, gachaID)
	if err != nil {
		return nil, err
	}
	defer held.Release(ctx)

	remaining, err := e.pool.Remaining(ctx, gachaID)
	if err != nil {
		return nil, err
	}
	cost, execNum, err := CostFor(cfg, pattern, remaining)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(otel.Int(otel.AttrExecNum, execNum))

	resv, err := e.limiter.Check(ctx, cfg, req.UserID, execNum)
	if err != nil {
		return nil, err
	}

	startPoint, err := e.balance.Check(ctx, req.UserID, cost)
	if err != nil {
		return nil, err
	}
	if remaining == 0 || remaining < int64(execNum) {
		return nil, model.NewDrawError(model.CodeInsufficientStock, "")
	}

	if err := e.balance.Debit(ctx, req.UserID, cost, now); err != nil {
		return nil, err
	}

	slots, err := e.pool.Draw(ctx, cfg, execNum)
	if err != nil {
		return nil, err
	}
	pity, err := e.pity.Apply(ctx, cfg, req.UserID, slots)
	if err != nil {
		return nil, err
	}

	settlement := &Settlement{
		GachaID:     gachaID,
		UserID:      req.UserID,
		Reservation: resv,
		Debit:       cost,
	}
	var pitySlot *model.PrizeSlot
	if pity != nil {
		settlement.PityCounter = &pity.Counter
		pitySlot = pity.Slot
	}
	if err := e.store.Commit(ctx, settlement); err != nil {
		return nil, errors.Wrap(err, "commit settlement")
	}

	left, err := e.pool.Remaining(ctx, gachaID)
	if err != nil {
		e.logger.WarnContext(ctx, "read remaining after draw failed", "gacha_id", gachaID, "error", err)
		left = -1
	}
	// 奖池与限购已落定，持久化和发布不再占用卡池锁
	held.Release(ctx)

	endPoint, err := e.store.Balance(ctx, req.UserID)
	if err != nil {
		e.logger.WarnContext(ctx, "read balance after draw failed", "user_id", req.UserID, "error", err)
		endPoint = startPoint - cost
	}

	res, err = e.compiler.Compile(ctx, &compileInput{
		cfg:        cfg,
		userID:     req.UserID,
		pattern:    pattern,
		execNum:    execNum,
		cost:       cost,
		slots:      slots,
		pity:       pitySlot,
		startPoint: startPoint,
		endPoint:   endPoint,
		now:        now,
		settings:   settings,
		soldOut:    left == 0,
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "draw completed",
		"gacha_id", gachaID,
		"pattern", pattern.String(),
		"exec_num", execNum,
		"cost", cost,
		"prizes", len(res.Prizes),
		"pity", pitySlot != nil,
	)
	return res, nil
}
