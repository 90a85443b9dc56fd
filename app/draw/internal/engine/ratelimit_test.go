package engine

import (
	"context"
	"testing"

	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occupiedSet(idx ...int) map[int]bool {
	m := make(map[int]bool, len(idx))
	for _, i := range idx {
		m[i] = true
	}
	return m
}

func TestFindFreeRun(t *testing.T) {
	tests := []struct {
		name      string
		occupied  map[int]bool
		capacity  int
		need      int
		wantStart int
		want      runVerdict
	}{
		{name: "empty", occupied: nil, capacity: 3, need: 1, wantStart: 1, want: runFound},
		{name: "skip occupied head", occupied: occupiedSet(1, 2), capacity: 5, need: 2, wantStart: 3, want: runFound},
		{name: "exact fit at tail", occupied: occupiedSet(1, 2), capacity: 4, need: 2, wantStart: 3, want: runFound},
		{name: "two free need three", occupied: occupiedSet(1, 2, 3), capacity: 5, need: 3, want: runPartial},
		{name: "all occupied", occupied: occupiedSet(1, 2, 3), capacity: 3, need: 1, want: runExhausted},
		{name: "fragmented", occupied: occupiedSet(2, 4), capacity: 5, need: 2, want: runPartial},
		{name: "run after gap", occupied: occupiedSet(2), capacity: 5, need: 2, wantStart: 3, want: runFound},
		{name: "zero need with space", occupied: occupiedSet(1), capacity: 2, need: 0, want: runFound},
		{name: "zero need without space", occupied: occupiedSet(1, 2), capacity: 2, need: 0, want: runExhausted},
		{name: "need over capacity", occupied: nil, capacity: 2, need: 3, want: runPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, verdict := findFreeRun(tt.occupied, tt.capacity, tt.need)
			assert.Equal(t, tt.want, verdict)
			if tt.want == runFound && tt.need > 0 {
				assert.Equal(t, tt.wantStart, start)
			}
		})
	}
}

func TestRateLimiterCheck(t *testing.T) {
	ctx := context.Background()
	const gachaID, userID = "g1", int64(7)

	tests := []struct {
		name    string
		cfg     model.GachaConfig
		setup   func(m *memStore)
		execNum int
		want    model.Code
		slots   []SlotMark
		global  int64
	}{
		{
			name:    "no limits",
			cfg:     model.GachaConfig{},
			execNum: 3,
		},
		{
			name:    "daily reserves first free run",
			cfg:     model.GachaConfig{LimitOncePerDay: 5},
			setup:   func(m *memStore) { m.occupy(gachaID, TierUserDaily, userID, 1) },
			execNum: 2,
			slots:   []SlotMark{{Tier: TierUserDaily, Index: 2}, {Tier: TierUserDaily, Index: 3}},
		},
		{
			name:    "daily cap reached",
			cfg:     model.GachaConfig{LimitOncePerDay: 2},
			setup:   func(m *memStore) { m.occupy(gachaID, TierUserDaily, userID, 1, 2) },
			execNum: 1,
			want:    model.CodeUserDailyCap,
		},
		{
			name:    "daily partial",
			cfg:     model.GachaConfig{LimitOncePerDay: 4},
			setup:   func(m *memStore) { m.occupy(gachaID, TierUserDaily, userID, 1, 2) },
			execNum: 3,
			want:    model.CodeUserDailyPartial,
		},
		{
			name:    "lifetime cap reached",
			cfg:     model.GachaConfig{LimitOnce: 1},
			setup:   func(m *memStore) { m.occupy(gachaID, TierUserLifetime, userID, 1) },
			execNum: 1,
			want:    model.CodeUserLifetimeCap,
		},
		{
			name:    "lifetime partial",
			cfg:     model.GachaConfig{LimitOnce: 3},
			setup:   func(m *memStore) { m.occupy(gachaID, TierUserLifetime, userID, 1) },
			execNum: 3,
			want:    model.CodeUserLifetimePartial,
		},
		{
			name:    "global cap reached",
			cfg:     model.GachaConfig{LimitEveryonePerDay: 5},
			setup:   func(m *memStore) { m.global[gachaID] = 5 },
			execNum: 1,
			want:    model.CodeGlobalDailyCap,
		},
		{
			name:    "global partial",
			cfg:     model.GachaConfig{LimitEveryonePerDay: 5},
			setup:   func(m *memStore) { m.global[gachaID] = 4 },
			execNum: 3,
			want:    model.CodeGlobalDailyPartial,
		},
		{
			name:    "global headroom",
			cfg:     model.GachaConfig{LimitEveryonePerDay: 5},
			setup:   func(m *memStore) { m.global[gachaID] = 2 },
			execNum: 3,
			global:  3,
		},
		{
			name:    "daily checked before global",
			cfg:     model.GachaConfig{LimitOncePerDay: 1, LimitEveryonePerDay: 1},
			setup:   func(m *memStore) { m.occupy(gachaID, TierUserDaily, userID, 1); m.global[gachaID] = 1 },
			execNum: 1,
			want:    model.CodeUserDailyCap,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if tt.setup != nil {
				tt.setup(store)
			}
			cfg := tt.cfg
			cfg.ID = gachaID
			rl := NewRateLimiter(store, logger.NewNoop())

			resv, err := rl.Check(ctx, &cfg, userID, tt.execNum)
			if tt.want != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.want, model.CodeOf(err))
				assert.Nil(t, resv)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.slots, resv.Slots)
			assert.Equal(t, tt.global, resv.GlobalIncr)
		})
	}
}

func TestReservationEmpty(t *testing.T) {
	var nilResv *Reservation
	assert.True(t, nilResv.Empty())
	assert.True(t, (&Reservation{}).Empty())
	assert.False(t, (&Reservation{GlobalIncr: 1}).Empty())
	assert.False(t, (&Reservation{Slots: []SlotMark{{Tier: TierUserDaily, Index: 1}}}).Empty())
}
