package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/pkg/prometheus"
)

// HTTPMetrics 接口指标
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics 在 client 的 Registry 上注册 HTTP 指标
func NewHTTPMetrics(client *prometheus.Client) (*HTTPMetrics, error) {
	requests, err := client.NewCounter("http_requests_total", "Total number of HTTP requests.",
		[]string{"route", "method", "status"})
	if err != nil {
		return nil, err
	}
	duration, err := client.NewHistogram("http_request_duration_seconds", "HTTP request latency in seconds.",
		[]string{"route", "method"}, nil)
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

// Metrics 记录请求数与耗时，route 取路由模板
func Metrics(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
