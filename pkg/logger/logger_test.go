package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) lines(t *testing.T) []map[string]interface{} {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := make(map[string]interface{})
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func newCaptured(t *testing.T, cfg *Config, opts ...Option) (*BaseLogger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	l, err := New(cfg, append(opts, WithWriter(buf))...)
	require.NoError(t, err)
	return l, buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{name: "nil config uses default", config: nil},
		{name: "console only", config: &Config{Level: InfoLevel, EnableConsole: true}},
		{name: "file without path", config: &Config{EnableFile: true}, wantErr: ErrInvalidOutputPath},
		{name: "no output", config: &Config{Level: InfoLevel}, wantErr: ErrNoOutputEnabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newCaptured(t, &Config{Level: WarnLevel, Format: JSONFormat})

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	lines := buf.lines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["msg"])
	assert.Equal(t, "error", lines[1]["msg"])
}

func TestKeyValueFields(t *testing.T) {
	l, buf := newCaptured(t, &Config{Level: DebugLevel, EnableStacktrace: false})

	l.Info("draw settled", "gacha_id", "g-1", "count", 3, "err", errors.New("boom"), "dangling")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "g-1", lines[0]["gacha_id"])
	assert.EqualValues(t, 3, lines[0]["count"])
	assert.Equal(t, "boom", lines[0]["err"])
	assert.Equal(t, "(MISSING)", lines[0]["dangling"])
}

func TestNamedAndWithFields(t *testing.T) {
	l, buf := newCaptured(t, nil)

	l.Named("engine").Named("draw").WithFields("gacha_id", "g-9").Info("locked")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "engine.draw", lines[0]["logger"])
	assert.Equal(t, "g-9", lines[0]["gacha_id"])
}

func TestContextExtractor(t *testing.T) {
	l, buf := newCaptured(t, nil)

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), 42)
	l.InfoContext(ctx, "draw started")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.EqualValues(t, 42, lines[0]["user_id"])
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestSensitiveDataHook(t *testing.T) {
	l, buf := newCaptured(t, nil, WithHooks(SensitiveDataHook("authorization")))

	l.Info("request", "authorization", "Bearer secret", "path", "/draw")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "***REDACTED***", lines[0]["authorization"])
	assert.Equal(t, "/draw", lines[0]["path"])
}

func TestDropHook(t *testing.T) {
	drop := HookFunc(func(entry zapcore.Entry, _ []zapcore.Field) bool {
		return entry.Message != "noise"
	})
	l, buf := newCaptured(t, nil, WithHooks(drop))

	l.Info("noise")
	l.Info("signal")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "signal", lines[0]["msg"])
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NewNoop()
	l.Named("x").WithFields("a", 1).Info("nothing")
	assert.NoError(t, l.Sync())
}

func TestDefault(t *testing.T) {
	n := NewNoop()
	SetDefault(n)
	t.Cleanup(func() { SetDefault(nil) })
	assert.Same(t, n, Default())
}
