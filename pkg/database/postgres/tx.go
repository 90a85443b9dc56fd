package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tx 事务内可用的操作
type Tx interface {
	// Exec 执行写操作，返回影响行数
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	// QueryInt64s 读取单列 bigint 结果，常用于 INSERT ... RETURNING id
	QueryInt64s(ctx context.Context, sql string, args ...any) ([]int64, error)
	// InsertBatch 同一条 SQL 以多组参数批量执行
	InsertBatch(ctx context.Context, sql string, argsList [][]any) (int64, error)
}

type txWrapper struct {
	tx pgx.Tx
}

func (t *txWrapper) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *txWrapper) QueryInt64s(ctx context.Context, sql string, args ...any) ([]int64, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect rows failed: %w", err)
	}
	return ids, nil
}

func (t *txWrapper) InsertBatch(ctx context.Context, sql string, argsList [][]any) (int64, error) {
	batch := &pgx.Batch{}
	for _, args := range argsList {
		batch.Queue(sql, args...)
	}

	results := t.tx.SendBatch(ctx, batch)
	defer results.Close()

	var total int64
	for i := range argsList {
		tag, err := results.Exec()
		if err != nil {
			return total, fmt.Errorf("batch insert failed at index %d: %w", i, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// WithTx 在事务中执行 fn，fn 返回 nil 时提交，否则回滚
func (c *Client) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&txWrapper{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback after fn error: %v (fn err: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
