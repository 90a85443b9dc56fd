package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/web/middleware"
)

var (
	ErrInvalidConfig        = errors.New("web: invalid config")
	ErrServerAlreadyStarted = errors.New("web: server already started")
)

// Server 基于 gin 的 HTTP 服务，实现 app.Server
type Server struct {
	engine  *gin.Engine
	config  *Config
	logger  logger.Logger
	server  *http.Server
	started atomic.Bool
}

// Option 服务选项
type Option func(*Server)

// WithMiddleware 在默认中间件之后追加全局中间件
func WithMiddleware(mw ...gin.HandlerFunc) Option {
	return func(s *Server) {
		s.engine.Use(mw...)
	}
}

// NewServer 创建 Web 服务，默认挂载请求 ID、日志、追踪与 CORS 中间件
func NewServer(cfg *Config, l logger.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(l.Named("web.access")),
		middleware.Tracing("web"),
		middleware.CORS(&cfg.CORS),
	)

	s := &Server{
		engine: engine,
		config: cfg,
		logger: l.Named("web.server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router 返回 gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 同步绑定端口后在后台提供服务
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		s.started.Store(false)
		return err
	}

	s.server = &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		var err error
		if s.config.EnableTLS {
			s.logger.Info("starting https server", "addr", ln.Addr().String())
			err = s.server.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
		} else {
			s.logger.Info("starting http server", "addr", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped unexpectedly", "error", err)
		}
	}()
	return nil
}

// Stop 优雅关闭
func (s *Server) Stop() error {
	if !s.started.Load() || s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server exited")
	return nil
}
