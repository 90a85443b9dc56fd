package engine

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

// LockManager 卡池级互斥，不阻塞不重试
type LockManager struct {
	locker Locker
	logger logger.Logger
}

func NewLockManager(locker Locker, l logger.Logger) *LockManager {
	return &LockManager{locker: locker, logger: l.Named("engine.lock")}
}

// TryAcquire 获取失败返回 202
func (m *LockManager) TryAcquire(ctx context.Context, gachaID string) (*HeldLock, error) {
	lease, err := m.locker.TryLock(ctx, gachaID)
	if err != nil {
		return nil, errors.Wrap(err, "acquire gacha lock")
	}
	if lease == nil {
		return nil, model.NewDrawError(model.CodeGachaBusy, "")
	}
	return &HeldLock{gachaID: gachaID, lease: lease, logger: m.logger}, nil
}

// HeldLock 本请求持有的锁，Release 只生效一次
type HeldLock struct {
	gachaID string
	lease   Lease
	logger  logger.Logger
	once    sync.Once
}

// Refresh 续租
func (h *HeldLock) Refresh(ctx context.Context) error {
	return h.lease.Refresh(ctx)
}

// Release 比较 token 后删除，锁已过期或被他人持有时只记录日志
func (h *HeldLock) Release(ctx context.Context) {
	h.once.Do(func() {
		if err := h.lease.Unlock(context.WithoutCancel(ctx)); err != nil {
			h.logger.WarnContext(ctx, "release gacha lock failed", "gacha_id", h.gachaID, "error", err)
		}
	})
}
