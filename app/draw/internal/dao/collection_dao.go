// Package dao 抽卡服务的 PostgreSQL 数据访问
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/gachadraw/app/draw/internal/engine"
	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/database/postgres"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

var _ engine.CollectionRepository = (*CollectionDAO)(nil)

// CollectionDAO 用户藏品数据访问对象
type CollectionDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.DrawMetrics
}

func NewCollectionDAO(db *postgres.Client, l logger.Logger, m *metrics.DrawMetrics) *CollectionDAO {
	return &CollectionDAO{
		db:      db,
		logger:  l.Named("dao.collection"),
		metrics: m,
	}
}

// buildCollectionInsert 多行插入，按输入顺序返回 id
func buildCollectionInsert(records []*model.CollectionRecord) (string, []any, error) {
	q := squirrel.
		Insert("user_collections").
		Columns("user_id", "item_id", "point", "emission_id", "created_at", "updated_at", "expired_at")
	for _, r := range records {
		q = q.Values(r.UserID, r.ItemID, r.Point, r.EmissionID, r.CreatedAt, r.CreatedAt, r.ExpiredAt)
	}
	return q.Suffix("RETURNING id").PlaceholderFormat(squirrel.Dollar).ToSql()
}

// InsertBatch 在一个事务内写入全部藏品
func (d *CollectionDAO) InsertBatch(ctx context.Context, records []*model.CollectionRecord) (ids []int64, err error) {
	if len(records) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("insert", err == nil, time.Since(start).Seconds())
	}()

	query, args, err := buildCollectionInsert(records)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	err = d.db.WithTx(ctx, func(tx postgres.Tx) error {
		got, err := tx.QueryInt64s(ctx, query, args...)
		if err != nil {
			return err
		}
		if len(got) != len(records) {
			return fmt.Errorf("inserted %d collections, expected %d", len(got), len(records))
		}
		ids = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert collections: %w", err)
	}
	return ids, nil
}
