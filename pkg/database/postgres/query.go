package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// QueryOne 查询单条记录，按列名映射到结构体（db tag），无结果返回 ErrNoRows
func QueryOne[T any](ctx context.Context, c *Client, sql string, args ...any) (*T, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		return nil, mapNoRows(err)
	}
	return v, nil
}

// QueryAll 查询多条记录
func QueryAll[T any](ctx context.Context, c *Client, sql string, args ...any) ([]*T, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		return nil, fmt.Errorf("collect rows failed: %w", err)
	}
	return out, nil
}

// Exec 执行写操作，返回影响行数
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
