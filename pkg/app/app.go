package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/lk2023060901/gachadraw/pkg/logger"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAppAlreadyRunning = errors.New("application is already running")
)

// Application 应用接口
type Application interface {
	Run() error
	Shutdown() error
	AppLogger() logger.Logger
}

// Server 需要启动与停止的服务（HTTP、消费者、定时任务），Start 不得阻塞
type Server interface {
	Start() error
	Stop() error
}

// Closer 资源清理接口（Redis、DB、Kafka、Tracer）
type Closer interface {
	Close() error
}

// BaseApp Application 的基础实现
type BaseApp struct {
	opts    Options
	logger  logger.Logger
	servers []Server
	closers []Closer

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex

	started atomic.Bool
	closed  atomic.Bool
}

// NewBaseApp 创建 BaseApp
func NewBaseApp(opts ...Option) *BaseApp {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseApp{
		opts:   o,
		logger: o.Logger.Named(o.Name),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AppLogger 应用主日志
func (a *BaseApp) AppLogger() logger.Logger {
	return a.logger
}

// Context 应用生命周期 context，Shutdown 时取消
func (a *BaseApp) Context() context.Context {
	return a.ctx
}

// Run 启动所有服务并阻塞，直到收到退出信号或 Shutdown 被调用
func (a *BaseApp) Run() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	info := GetInfo()
	fmt.Println(info.String())
	a.logger.Info("application starting",
		"name", a.opts.Name,
		"version", info.Version,
		"commit", info.GitCommit,
		"go_version", info.GoVersion,
		"id", a.opts.ID,
	)

	a.mu.Lock()
	servers := append([]Server(nil), a.servers...)
	a.mu.Unlock()

	for i, srv := range servers {
		if err := srv.Start(); err != nil {
			a.logger.Error("failed to start server", "index", i, "error", err)
			_ = a.Shutdown()
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		a.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-a.ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown 并发停止所有服务，随后按注册逆序关闭资源
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.cancel()

	a.mu.Lock()
	servers := append([]Server(nil), a.servers...)
	closers := append([]Closer(nil), a.closers...)
	a.mu.Unlock()

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.opts.StopTimeout)
	defer cancel()

	var g errgroup.Group
	for _, srv := range servers {
		s := srv
		g.Go(func() error {
			if err := s.Stop(); err != nil {
				a.logger.Error("failed to stop server", "error", err)
				return err
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var stopErr error
	select {
	case stopErr = <-done:
		a.logger.Info("all servers stopped")
	case <-ctx.Done():
		a.logger.Warn("shutdown timeout, forcing exit", "timeout", a.opts.StopTimeout)
	}

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			a.logger.Error("failed to close component", "error", err)
		}
	}

	a.logger.Info("application exited")
	_ = a.logger.Sync()
	return stopErr
}

// AppendServer 注册服务
func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 注册资源清理组件
func (a *BaseApp) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}
