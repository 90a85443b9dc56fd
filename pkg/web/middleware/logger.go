package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

// RequestID 透传或生成请求 ID，写入响应头与 request context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(HeaderRequestID, rid)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// Logger 访问日志
func Logger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"ip", c.ClientIP(),
			"latency", time.Since(start).String(),
		}

		ctx := c.Request.Context()
		switch {
		case len(c.Errors) > 0:
			l.ErrorContext(ctx, "http request", append(fields, "errors", c.Errors.String())...)
		case status >= 500:
			l.ErrorContext(ctx, "http request", fields...)
		case status >= 400:
			l.WarnContext(ctx, "http request", fields...)
		default:
			l.InfoContext(ctx, "http request", fields...)
		}
	}
}
