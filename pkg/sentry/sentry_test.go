package sentry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)

	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.SampleRate = 2
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestClientWithoutDSN(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	c.CaptureError(context.Background(), errors.New("boom"), map[string]string{"gacha_id": "1"})
	c.CaptureError(context.Background(), nil, nil)
	c.CapturePanic(context.Background(), "panic", nil)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	before := c.Captured()
	c.CaptureError(context.Background(), errors.New("after close"), nil)
	assert.Equal(t, before, c.Captured())
}
