package main

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lk2023060901/gachadraw/pkg/app"
	"github.com/lk2023060901/gachadraw/pkg/database/postgres"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/spf13/pflag"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config 迁移工具配置
type Config struct {
	Log      logger.Config   `mapstructure:"log"`
	Database postgres.Config `mapstructure:"database"`
}

var (
	down    bool
	version uint
)

func main() {
	pflag.BoolVar(&down, "down", false, "roll back all migrations")
	pflag.UintVar(&version, "version", 0, "migrate to the given version instead of latest")

	var cfg Config
	if _, err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}

	v, dirty, err := run(&cfg, l)
	if err != nil {
		l.Error("migration failed", "error", err)
		return
	}
	l.Info("migration finished", "version", v, "dirty", dirty)
}

// run 执行迁移并返回当前版本
func run(cfg *Config, l logger.Logger) (uint, bool, error) {
	if err := cfg.Database.Validate(); err != nil {
		return 0, false, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return 0, false, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return 0, false, fmt.Errorf("ping db: %w", err)
	}

	driver, err := pgx.WithInstance(db, &pgx.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("init pgx driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return 0, false, fmt.Errorf("migrate instance: %w", err)
	}
	m.Log = &migrateLogger{l: l.Named("migrate")}

	switch {
	case down:
		err = m.Down()
	case version > 0:
		err = m.Migrate(version)
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, err
	}

	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, err
	}
	return v, dirty, nil
}

// migrateLogger 将 migrate 的日志转到 zap
type migrateLogger struct {
	l logger.Logger
}

func (m *migrateLogger) Printf(format string, v ...any) {
	m.l.Info(fmt.Sprintf(format, v...))
}

func (m *migrateLogger) Verbose() bool { return false }
