// Package handler 抽卡服务的 HTTP 接口
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/sentry"
	"github.com/lk2023060901/gachadraw/pkg/web"
	"github.com/lk2023060901/gachadraw/pkg/web/middleware"
)

// Drawer 由 *engine.Engine 实现
type Drawer interface {
	Draw(ctx context.Context, req model.DrawRequest) (*model.DrawResult, error)
}

// DrawHandler 抽卡处理器
type DrawHandler struct {
	drawer   Drawer
	metrics  *metrics.DrawMetrics
	reporter sentry.Reporter
	logger   logger.Logger
}

func NewDrawHandler(d Drawer, m *metrics.DrawMetrics, r sentry.Reporter, l logger.Logger) *DrawHandler {
	web.RegisterJSONTagNames()
	return &DrawHandler{
		drawer:   d,
		metrics:  m,
		reporter: r,
		logger:   l.Named("handler.draw"),
	}
}

// DrawBody 请求体，pattern 缺省为单抽
type DrawBody struct {
	Pattern   int    `json:"pattern" binding:"omitempty,oneof=1 2 3"`
	DrawToken string `json:"drawToken"`
}

// Register 注册路由，mw 依次为认证、限流等路由级中间件
func (h *DrawHandler) Register(r gin.IRouter, mw ...gin.HandlerFunc) {
	api := r.Group("/api/v1", mw...)
	{
		api.POST("/gachas/:gachaId/draw", h.Draw)
	}
}

// AuthError 认证失败统一返回 101
func AuthError(c *gin.Context, _ error) {
	web.Fail(c, http.StatusBadRequest, int(model.CodeUnauthenticated))
}

// Draw 执行一次抽卡
// @Summary 抽卡
// @Tags gacha
// @Accept json
// @Produce json
// @Param gachaId path string true "卡池 ID"
// @Param request body DrawBody false "抽卡参数"
// @Success 200 {object} model.DrawResult
// @Failure 400 {object} web.ErrorBody
// @Failure 500 {object} web.ErrorBody
// @Router /api/v1/gachas/{gachaId}/draw [post]
func (h *DrawHandler) Draw(c *gin.Context) {
	start := time.Now()

	var body DrawBody
	if err := web.BindJSON(c, &body); err != nil {
		h.logger.WarnContext(c.Request.Context(), "invalid draw request", "error", err)
		h.fail(c, model.Pattern(body.Pattern), model.NewDrawError(model.CodeInvalidParameter, err.Error()), start)
		return
	}

	userID, _ := middleware.UserID(c)
	req := model.DrawRequest{
		UserID:    userID,
		GachaID:   c.Param("gachaId"),
		Pattern:   model.Pattern(body.Pattern),
		DrawToken: body.DrawToken,
	}

	res, err := h.drawer.Draw(c.Request.Context(), req)
	if err != nil {
		h.fail(c, req.Pattern, err, start)
		return
	}

	h.metrics.RecordDraw(req.Pattern, nil, time.Since(start).Seconds(), res)
	web.OK(c, res)
}

func (h *DrawHandler) fail(c *gin.Context, pattern model.Pattern, err error, start time.Time) {
	ctx := c.Request.Context()
	h.metrics.RecordDraw(pattern, err, time.Since(start).Seconds(), nil)

	code := model.CodeOf(err)
	if code == model.CodeInternal {
		h.logger.ErrorContext(ctx, "draw failed", "gacha_id", c.Param("gachaId"), "error", err)
		h.reporter.CaptureError(ctx, err, map[string]string{"gacha_id": c.Param("gachaId")})
		web.Fail(c, http.StatusInternalServerError, int(code))
		return
	}
	h.logger.InfoContext(ctx, "draw rejected", "gacha_id", c.Param("gachaId"), "code", int(code), "error", err)
	web.Fail(c, http.StatusBadRequest, int(code))
}
