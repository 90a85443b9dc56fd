package job

import (
	"context"
	"errors"
	"path"
	"testing"

	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeys struct {
	keys    map[string]bool
	batches [][]string
	scanErr error
}

func (f *fakeKeys) ScanKeys(_ context.Context, match string, batch int64, fn func(keys []string) error) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	var found []string
	for k := range f.keys {
		if ok, _ := path.Match(match, k); ok {
			found = append(found, k)
		}
	}
	for len(found) > 0 {
		n := int(batch)
		if n > len(found) {
			n = len(found)
		}
		f.batches = append(f.batches, found[:n])
		if err := fn(found[:n]); err != nil {
			return err
		}
		found = found[n:]
	}
	return nil
}

func (f *fakeKeys) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if f.keys[k] {
			delete(f.keys, k)
			n++
		}
	}
	return n, nil
}

func TestSweepDeletesDailyKeysOnly(t *testing.T) {
	store := &fakeKeys{keys: map[string]bool{
		"gacha:prd:1:1:limit1": true,
		"gacha:prd:1:2:limit1": true,
		"gacha:prd:2:1:limit1": true,
		"gacha:prd:1:limit2":   true,
		"gacha:prd:1:1:limit3": true,
		"gacha:prd:1:list":     true,
		"gacha:stg:1:1:limit1": true,
	}}
	s := NewDailySweeper(store, []string{"gacha:prd:*:limit1", "gacha:prd:*:limit2"}, Config{BatchSize: 2}, logger.NewNoop())

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, map[string]bool{
		"gacha:prd:1:1:limit3": true,
		"gacha:prd:1:list":     true,
		"gacha:stg:1:1:limit1": true,
	}, store.keys)
	for _, b := range store.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
}

func TestSweepError(t *testing.T) {
	boom := errors.New("scan failed")
	s := NewDailySweeper(&fakeKeys{scanErr: boom}, []string{"gacha:prd:*:limit1"}, Config{}, logger.NewNoop())

	_, err := s.Sweep(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestStartStop(t *testing.T) {
	s := NewDailySweeper(&fakeKeys{}, nil, Config{Enable: true, Timezone: "UTC"}, logger.NewNoop())
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	bad := NewDailySweeper(&fakeKeys{}, nil, Config{Enable: true, Schedule: "not a schedule"}, logger.NewNoop())
	assert.Error(t, bad.Start())

	disabled := NewDailySweeper(&fakeKeys{}, nil, Config{}, logger.NewNoop())
	require.NoError(t, disabled.Start())
	require.NoError(t, disabled.Stop())
}
