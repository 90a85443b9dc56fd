package dao

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/database/postgres"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCollectionInsert(t *testing.T) {
	now := time.Now()
	query, args, err := buildCollectionInsert([]*model.CollectionRecord{
		{UserID: 1, ItemID: 10, Point: 5, EmissionID: 100, CreatedAt: now, ExpiredAt: now.Add(time.Hour)},
		{UserID: 1, ItemID: 11, Point: 0, EmissionID: 101, CreatedAt: now, ExpiredAt: now.Add(time.Hour)},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO user_collections (user_id,item_id,point,emission_id,created_at,updated_at,expired_at) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14) RETURNING id", query)
	assert.Len(t, args, 14)
	assert.Equal(t, int64(11), args[8])
}

func TestBuildMarkProcessed(t *testing.T) {
	query, args, err := buildMarkProcessed(StreamDebit, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO processed_messages (topic,message_id) VALUES ($1,$2) ON CONFLICT (topic, message_id) DO NOTHING", query)
	assert.Equal(t, []any{"debit", "m-1"}, args)
}

func newTestDB(t *testing.T) *postgres.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db, err := postgres.New(&postgres.Config{
		Standalone: &postgres.DBConfig{
			Host: "localhost", Port: 15432, User: "postgres", Password: "postgres",
			DBName: "gacha_test", SSLMode: "disable",
		},
		ConnectTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	files, err := filepath.Glob("../../../migrator/cmd/migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		raw, err := os.ReadFile(f)
		require.NoError(t, err)
		for _, stmt := range strings.Split(string(raw), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err := db.Exec(ctx, stmt)
			require.NoError(t, err)
		}
	}
	return db
}

func newTestMetrics(t *testing.T) *metrics.DrawMetrics {
	t.Helper()
	client, err := prometheus.New(&prometheus.Config{Namespace: "test", Path: "/metrics"})
	require.NoError(t, err)
	m, err := metrics.New(client)
	require.NoError(t, err)
	return m
}

func TestCollectionDAOInsertBatch(t *testing.T) {
	db := newTestDB(t)
	d := NewCollectionDAO(db, logger.NewNoop(), newTestMetrics(t))
	ctx := context.Background()

	ids, err := d.InsertBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	now := time.Now()
	ids, err = d.InsertBatch(ctx, []*model.CollectionRecord{
		{UserID: 42, ItemID: 1, Point: 5, EmissionID: 900, CreatedAt: now, ExpiredAt: now.Add(time.Hour)},
		{UserID: 42, ItemID: 2, Point: 7, EmissionID: 901, CreatedAt: now, ExpiredAt: now.Add(time.Hour)},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])
}

func TestLedgerDAOIdempotent(t *testing.T) {
	db := newTestDB(t)
	d := NewLedgerDAO(db, logger.NewNoop(), newTestMetrics(t))
	ctx := context.Background()
	id := "debit-" + time.Now().Format("150405.000000000")

	executed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &model.DebitMessage{UserID: 42, Point: 300, DetailStatus: model.DetailStatusDraw, ExecuteAt: executed.Unix()}
	applied, err := d.ApplyDebit(ctx, id, msg)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = d.ApplyDebit(ctx, id, msg)
	require.NoError(t, err)
	assert.False(t, applied)

	type countRow struct {
		N int64 `db:"n"`
	}
	row, err := postgres.QueryOne[countRow](ctx, db, `SELECT COUNT(*) AS n FROM point_ledger WHERE message_id = $1`, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.N)

	type atRow struct {
		At time.Time `db:"executed_at"`
	}
	at, err := postgres.QueryOne[atRow](ctx, db, `SELECT executed_at FROM point_ledger WHERE message_id = $1`, id)
	require.NoError(t, err)
	assert.True(t, executed.Equal(at.At), "executed_at %s", at.At)
}

func TestLedgerDAOStreams(t *testing.T) {
	db := newTestDB(t)
	d := NewLedgerDAO(db, logger.NewNoop(), newTestMetrics(t))
	ctx := context.Background()
	id := "evt-" + time.Now().Format("150405.000000000")
	executed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := executed.Unix()

	applied, err := d.ApplyInventory(ctx, id, &model.InventoryMessage{ItemIDs: []int64{1, 1, 2}, InventoryID: model.InventoryReasonDraw})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = d.ApplyEmission(ctx, id, &model.EmissionMessage{GachaID: "7", UserID: 42, EmissionIDs: []int64{5, 6}, ExecuteAt: at})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = d.ApplyHistory(ctx, id, &model.HistoryMessage{
		GachaID: "7", UserID: 42, EmissionIDs: []int64{5, 6}, StartPoint: 1000, EndPoint: 800,
		Pattern: model.PatternMulti, ExecutedAt: at,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = d.ApplyInventory(ctx, id, &model.InventoryMessage{ItemIDs: []int64{1}, InventoryID: model.InventoryReasonDraw})
	require.NoError(t, err)
	assert.False(t, applied, "same message id on the same stream is skipped")

	type atRow struct {
		At time.Time `db:"executed_at"`
	}
	for _, table := range []string{"emission_history", "draw_history"} {
		row, err := postgres.QueryOne[atRow](ctx, db, `SELECT executed_at FROM `+table+` WHERE message_id = $1`, id)
		require.NoError(t, err)
		assert.True(t, executed.Equal(row.At), "%s executed_at %s", table, row.At)
	}
}
