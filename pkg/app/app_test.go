package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeServer struct {
	name     string
	rec      *recorder
	startErr error
}

func (s *fakeServer) Start() error {
	s.rec.add("start:" + s.name)
	return s.startErr
}

func (s *fakeServer) Stop() error {
	s.rec.add("stop:" + s.name)
	return nil
}

func TestBaseApp_ShutdownClosesInReverse(t *testing.T) {
	rec := &recorder{}
	a := NewBaseApp(WithLogger(logger.NewNoop()), WithName("test"))
	InitApp(a, AppComponents{
		Servers: []Server{&fakeServer{name: "http", rec: rec}},
		Closers: []Closer{
			CloserFunc(func() error { rec.add("close:redis"); return nil }),
			CloserFunc(func() error { rec.add("close:postgres"); return nil }),
		},
	})

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	require.Eventually(t, func() bool {
		return len(rec.list()) >= 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, a.Shutdown())
	require.NoError(t, <-done)

	assert.Equal(t, []string{"start:http", "stop:http", "close:postgres", "close:redis"}, rec.list())
	assert.ErrorIs(t, a.Run(), ErrAppAlreadyRunning)
}

func TestBaseApp_StartFailureShutsDown(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("bind failed")
	a := NewBaseApp(WithLogger(logger.NewNoop()))
	a.AppendServer(&fakeServer{name: "http", rec: rec, startErr: boom})

	err := a.Run()
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, rec.list(), "stop:http")
}
