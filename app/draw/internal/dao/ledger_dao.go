package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/database/postgres"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

// 去重表中的消息流名
const (
	StreamDebit     = "debit"
	StreamInventory = "inventory"
	StreamEmission  = "emission"
	StreamHistory   = "history"
)

// LedgerDAO 抽卡下游事件落库，每条消息按 (stream, message_id) 只生效一次
type LedgerDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.DrawMetrics
}

func NewLedgerDAO(db *postgres.Client, l logger.Logger, m *metrics.DrawMetrics) *LedgerDAO {
	return &LedgerDAO{
		db:      db,
		logger:  l.Named("dao.ledger"),
		metrics: m,
	}
}

func buildMarkProcessed(stream, messageID string) (string, []any, error) {
	return squirrel.
		Insert("processed_messages").
		Columns("topic", "message_id").
		Values(stream, messageID).
		Suffix("ON CONFLICT (topic, message_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

// apply 先占用去重记录，占用成功才执行 fn；返回 false 表示消息已处理过
func (d *LedgerDAO) apply(ctx context.Context, stream, messageID string, fn func(tx postgres.Tx) error) (applied bool, err error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("apply_"+stream, err == nil, time.Since(start).Seconds())
	}()

	mark, args, err := buildMarkProcessed(stream, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	err = d.db.WithTx(ctx, func(tx postgres.Tx) error {
		n, err := tx.Exec(ctx, mark, args...)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		applied = true
		return fn(tx)
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply %s message %s: %w", stream, messageID, err)
	}
	return applied, nil
}

func execBuilt(ctx context.Context, tx postgres.Tx, b squirrel.InsertBuilder) error {
	query, args, err := b.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

// ApplyDebit 点数扣减流水
func (d *LedgerDAO) ApplyDebit(ctx context.Context, messageID string, msg *model.DebitMessage) (bool, error) {
	return d.apply(ctx, StreamDebit, messageID, func(tx postgres.Tx) error {
		return execBuilt(ctx, tx, squirrel.
			Insert("point_ledger").
			Columns("message_id", "user_id", "point", "detail_status", "executed_at").
			Values(messageID, msg.UserID, msg.Point, msg.DetailStatus, time.Unix(msg.ExecuteAt, 0)))
	})
}

// ApplyInventory 每个道具一行库存变动
func (d *LedgerDAO) ApplyInventory(ctx context.Context, messageID string, msg *model.InventoryMessage) (bool, error) {
	return d.apply(ctx, StreamInventory, messageID, func(tx postgres.Tx) error {
		if len(msg.ItemIDs) == 0 {
			return nil
		}
		b := squirrel.
			Insert("inventory_movements").
			Columns("message_id", "item_id", "inventory_id")
		for _, id := range msg.ItemIDs {
			b = b.Values(messageID, id, msg.InventoryID)
		}
		return execBuilt(ctx, tx, b)
	})
}

// ApplyEmission 每个出货 ID 一行
func (d *LedgerDAO) ApplyEmission(ctx context.Context, messageID string, msg *model.EmissionMessage) (bool, error) {
	return d.apply(ctx, StreamEmission, messageID, func(tx postgres.Tx) error {
		if len(msg.EmissionIDs) == 0 {
			return nil
		}
		at := time.Unix(msg.ExecuteAt, 0)
		b := squirrel.
			Insert("emission_history").
			Columns("message_id", "gacha_id", "user_id", "emission_id", "executed_at")
		for _, id := range msg.EmissionIDs {
			b = b.Values(messageID, msg.GachaID, msg.UserID, id, at)
		}
		return execBuilt(ctx, tx, b)
	})
}

func (d *LedgerDAO) ApplyHistory(ctx context.Context, messageID string, msg *model.HistoryMessage) (bool, error) {
	return d.apply(ctx, StreamHistory, messageID, func(tx postgres.Tx) error {
		ids := msg.EmissionIDs
		if ids == nil {
			ids = []int64{}
		}
		return execBuilt(ctx, tx, squirrel.
			Insert("draw_history").
			Columns("message_id", "gacha_id", "user_id", "emission_ids", "start_point", "end_point", "pattern", "executed_at").
			Values(messageID, msg.GachaID, msg.UserID, ids, msg.StartPoint, msg.EndPoint, int(msg.Pattern), time.Unix(msg.ExecutedAt, 0)))
	})
}
