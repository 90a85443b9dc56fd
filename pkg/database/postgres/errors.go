package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("postgres: config is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("postgres: invalid config")

	// ErrNoRows 查询无结果
	ErrNoRows = errors.New("postgres: no rows in result set")
)

const uniqueViolation = "23505"

// IsUniqueViolation 是否为唯一约束冲突
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}
