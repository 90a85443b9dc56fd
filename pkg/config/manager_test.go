package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
draw:
  env_id: dev
  lock:
    ttl: 10s
redis:
  standalone:
    addr: localhost:6379
`

type drawSection struct {
	EnvID string `mapstructure:"env_id"`
	Lock  struct {
		TTL string `mapstructure:"ttl"`
	} `mapstructure:"lock"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestManager_LoadAndUnmarshalKey(t *testing.T) {
	m := NewManager(WithDefaults(map[string]any{"http.port": 8080}))
	require.NoError(t, m.LoadFile(writeConfig(t, sampleYAML)))

	var draw drawSection
	require.NoError(t, m.UnmarshalKey("draw", &draw))
	assert.Equal(t, "dev", draw.EnvID)
	assert.Equal(t, "10s", draw.Lock.TTL)

	assert.True(t, m.IsSet("redis.standalone.addr"))
	assert.Equal(t, "8080", m.GetString("http.port"))
}

func TestManager_EnvOverride(t *testing.T) {
	t.Setenv("GACHATEST_DRAW_ENV_ID", "stg")

	m := NewManager(WithEnvPrefix("GACHATEST"))
	require.NoError(t, m.LoadFile(writeConfig(t, sampleYAML)))

	assert.Equal(t, "stg", m.GetString("draw.env_id"))
}

func TestManager_LoadMissingFile(t *testing.T) {
	m := NewManager()
	err := m.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestManager_WatchRequiresFile(t *testing.T) {
	m := NewManager()
	assert.ErrorIs(t, m.Watch(func() {}), ErrNoConfigFile)
}
