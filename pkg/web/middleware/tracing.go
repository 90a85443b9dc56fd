package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/pkg/otel"
)

// Tracing 为每个请求创建 server span
func Tracing(tracer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.ExtractHTTP(c.Request.Context(), c.Request.Header)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := otel.StartSpan(ctx, tracer, fmt.Sprintf("%s %s", c.Request.Method, route), otel.SpanKindServer,
			otel.String("http.method", c.Request.Method),
			otel.String("http.route", route),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(otel.Int("http.status_code", status))
		if status >= 500 {
			otel.RecordError(span, fmt.Errorf("http status %d", status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last().Err)
		}
	}
}
