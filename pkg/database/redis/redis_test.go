package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var standaloneConfig = &Config{
	Standalone: &NodeConfig{Host: "localhost", Port: 16379},
	Pool: PoolConfig{
		PoolSize:     20,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	},
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	c, err := NewClient(standaloneConfig)
	require.NoError(t, err)
	if err := c.Ping(context.Background()); err != nil {
		c.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{name: "nil", cfg: nil, want: ErrNilConfig},
		{name: "no mode", cfg: &Config{}, want: ErrInvalidConfig},
		{name: "both modes", cfg: &Config{Standalone: &NodeConfig{}, Cluster: &ClusterConfig{Addrs: []string{"a:1"}}}, want: ErrInvalidConfig},
		{name: "empty cluster", cfg: &Config{Cluster: &ClusterConfig{}}, want: ErrInvalidConfig},
		{name: "standalone", cfg: DefaultConfig()},
		{name: "cluster", cfg: &Config{Cluster: &ClusterConfig{Addrs: []string{"a:7001"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLock_OnlyHolderReleases(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test:lock:holder"
	t.Cleanup(func() { _, _ = c.Del(ctx, key) })

	a := NewLock(c, key, 5*time.Second)
	b := NewLock(c, key, 5*time.Second)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Unlock(ctx), ErrLockNotHeld)
	assert.ErrorIs(t, b.Refresh(ctx), ErrLockNotHeld)

	require.NoError(t, a.Refresh(ctx))
	require.NoError(t, a.Unlock(ctx))

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock(ctx))
}

func TestLock_LeaseExpires(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test:lock:lease"
	t.Cleanup(func() { _, _ = c.Del(ctx, key) })

	stale := NewLock(c, key, 100*time.Millisecond)
	ok, err := stale.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(200 * time.Millisecond)

	fresh := NewLock(c, key, time.Second)
	ok, err = fresh.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.ErrorIs(t, stale.Unlock(ctx), ErrLockNotHeld)
}

func TestLock_Concurrent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test:lock:concurrent"
	t.Cleanup(func() { _, _ = c.Del(ctx, key) })

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := NewLock(c, key, 5*time.Second).TryLock(ctx)
			if err == nil && ok {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, acquired.Load())
}

func TestBatchAndListOps(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	list, set, counter := "test:batch:list", "test:batch:set", "test:batch:counter"
	t.Cleanup(func() { _, _ = c.Del(ctx, list, set, counter) })

	err := c.Batch(ctx, func(p *Pipeline) {
		p.RPush(list, "a", "b", "c").SAdd(set, "42").IncrBy(counter, 3)
	})
	require.NoError(t, err)

	n, err := c.LLen(ctx, list)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	vals, err := c.LPopCount(ctx, list, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, vals)

	member, err := c.SIsMemberBatch(ctx, []string{set, "test:batch:missing"}, 42)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, member)

	v, err := c.GetInt64(ctx, counter)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)

	_, err = c.Get(ctx, "test:batch:absent")
	assert.ErrorIs(t, err, ErrNil)
}

func TestObjectRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test:object"
	t.Cleanup(func() { _, _ = c.Del(ctx, key) })

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, SetObject(ctx, c, key, payload{Name: "pack", Count: 3}, time.Minute))

	got, err := GetObject[payload](ctx, c, key)
	require.NoError(t, err)
	assert.Equal(t, "pack", got.Name)
	assert.Equal(t, 3, got.Count)
}
