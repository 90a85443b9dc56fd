package kafka

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Brokers = nil
	assert.ErrorIs(t, cfg.Validate(), ErrNoBrokers)

	cfg = DefaultConfig()
	cfg.Brokers = []string{""}
	assert.ErrorIs(t, cfg.Validate(), ErrNoBrokers)

	cfg = DefaultConfig()
	cfg.Consumer.GroupID = ""
	assert.ErrorIs(t, cfg.Validate(), ErrEmptyGroupID)

	cfg = DefaultConfig()
	cfg.SASL = &SASLConfig{Mechanism: "GSSAPI", Username: "u"}
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownMechanism)
}

func TestNewMergesDefaults(t *testing.T) {
	c, err := New(&Config{Brokers: []string{"kafka:9092"}})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []string{"kafka:9092"}, c.Config().Brokers)
	assert.Equal(t, "gacha-draw", c.Config().Consumer.GroupID)
	assert.False(t, c.Config().Producer.Async)
}

func TestClientClosed(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Producer("t")
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = c.Subscribe([]string{"t"}, func(context.Context, *Message) error { return nil })
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestProducerCachedPerTopic(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	p1, err := c.Producer("draws")
	require.NoError(t, err)
	p2, err := c.Producer("draws")
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	_, err = c.Producer("")
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestProducerMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) ProducerMiddleware {
		return func(ctx context.Context, msg *Message, next func(context.Context, *Message) error) error {
			order = append(order, name)
			return errors.New("stop")
		}
	}
	c, err := New(nil, WithProducerMiddleware(mw("first"), mw("second")))
	require.NoError(t, err)
	defer c.Close()

	err = c.Publish(context.Background(), "draws", &Message{Value: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, []string{"first"}, order)

	p, _ := c.Producer("draws")
	assert.Equal(t, int64(1), p.Stats().MessagesFailed)
}

func TestSubscribeValidation(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Subscribe(nil, func(context.Context, *Message) error { return nil })
	assert.ErrorIs(t, err, ErrNoTopics)
	_, err = c.Subscribe([]string{"t"}, nil)
	assert.ErrorIs(t, err, ErrNoHandler)

	cg, err := c.Subscribe([]string{"t"}, func(context.Context, *Message) error { return nil },
		WithGroupID("ledger"), WithConcurrency(2))
	require.NoError(t, err)
	assert.Equal(t, "ledger", cg.GroupID())
	assert.Equal(t, ConsumerStateIdle, cg.State())
	assert.ErrorIs(t, cg.Stop(), ErrConsumerNotRunning)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := chain(func(context.Context, *Message) error {
		panic("boom")
	}, []Middleware{RecoveryMiddleware(logger.NewNoop())})

	err := h(context.Background(), &Message{Topic: "t"})
	assert.ErrorIs(t, err, ErrConsumerPanic)
}

func TestRetryMiddleware(t *testing.T) {
	calls := 0
	h := RetryMiddleware(2, time.Millisecond)(func(context.Context, *Message) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, h(context.Background(), &Message{}))
	assert.Equal(t, 3, calls)

	calls = 0
	h = RetryMiddleware(1, time.Millisecond)(func(context.Context, *Message) error {
		calls++
		return errors.New("permanent")
	})
	assert.EqualError(t, h(context.Background(), &Message{}), "permanent")
	assert.Equal(t, 2, calls)
}

func TestRetryMiddlewareHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := RetryMiddleware(5, time.Hour)(func(context.Context, *Message) error {
		cancel()
		return errors.New("fail")
	})
	assert.ErrorIs(t, h(ctx, &Message{}), context.Canceled)
}

func TestTracingMiddlewaresPropagateHeaders(t *testing.T) {
	var seen *Message
	publish := ProducerTracingMiddleware("test")
	msg := &Message{Topic: "t"}
	require.NoError(t, publish(context.Background(), msg, func(_ context.Context, m *Message) error {
		seen = m
		return nil
	}))
	assert.NotNil(t, seen.Headers)

	h := TracingMiddleware("test")(func(context.Context, *Message) error { return nil })
	assert.NoError(t, h(context.Background(), msg))
}

func TestMessageID(t *testing.T) {
	assert.Empty(t, (&Message{}).ID())
	m := &Message{Headers: map[string]string{HeaderMessageID: "abc"}}
	assert.Equal(t, "abc", m.ID())
	assert.Equal(t, "running", ConsumerStateRunning.String())
	assert.Equal(t, "unknown", ConsumerState(9).String())
}

func TestSASLMechanism(t *testing.T) {
	m, err := newSASLMechanism(&SASLConfig{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "PLAIN", m.Name())

	m, err = newSASLMechanism(&SASLConfig{Mechanism: "SCRAM-SHA-512", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "SCRAM-SHA-512", m.Name())

	_, err = newSASLMechanism(&SASLConfig{Mechanism: "OAUTH", Username: "u"})
	assert.ErrorIs(t, err, ErrUnknownMechanism)
}

func TestTLSConfigBadCA(t *testing.T) {
	dir := t.TempDir()
	ca := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("not a cert"), 0o600))

	_, err := newTLSConfig(&TLSConfig{Enable: true, CAFile: ca})
	assert.Error(t, err)

	_, err = newTLSConfig(&TLSConfig{Enable: true, CAFile: filepath.Join(dir, "missing.pem")})
	assert.Error(t, err)
}
