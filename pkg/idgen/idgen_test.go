package idgen

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSonyflakeUnique(t *testing.T) {
	g, err := NewSonyflake(&Config{MachineID: 7})
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id, err := g.NextID()
				assert.NoError(t, err)
				mu.Lock()
				assert.False(t, seen[id])
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}

func TestSonyflakeFutureStart(t *testing.T) {
	_, err := NewSonyflake(&Config{StartTime: time.Now().Add(time.Hour)})
	assert.Error(t, err)
}

type failing struct{}

func (failing) NextID() (int64, error) { return 0, errors.New("clock moved") }

func TestStringFunc(t *testing.T) {
	g, err := NewSonyflake(nil)
	require.NoError(t, err)

	id := StringFunc(g)()
	_, err = strconv.ParseInt(id, 10, 64)
	assert.NoError(t, err)

	fallback := StringFunc(failing{})()
	assert.Len(t, fallback, 36)
}
