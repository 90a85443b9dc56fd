package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Checker 依赖探活
type Checker func(ctx context.Context) error

// HealthHandler 健康检查
type HealthHandler struct {
	version string
	checks  map[string]Checker
	timeout time.Duration
}

func NewHealthHandler(version string, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{version: version, checks: checks, timeout: 3 * time.Second}
}

func (h *HealthHandler) Register(r gin.IRouter, metrics http.Handler) {
	r.GET("/health", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
}

// Health 并发检查全部依赖，任一失败返回 503
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	errs := make([]error, 0, len(h.checks))
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	errs = errs[:len(names)]

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			errs[i] = h.checks[name](gctx)
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	for i, name := range names {
		if errs[i] != nil {
			status = http.StatusServiceUnavailable
			results[name] = errs[i].Error()
			continue
		}
		results[name] = "ok"
	}
	c.JSON(status, gin.H{
		"status":  http.StatusText(status),
		"version": h.version,
		"checks":  results,
	})
}
