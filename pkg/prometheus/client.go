package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type (
	CounterVec   = prometheus.CounterVec
	GaugeVec     = prometheus.GaugeVec
	HistogramVec = prometheus.HistogramVec
	Registry     = prometheus.Registry
)

// Client 持有独立的 Registry，避免与全局默认注册器冲突
type Client struct {
	config   *Config
	registry *prometheus.Registry
}

// New 创建客户端
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg, registry: prometheus.NewRegistry()}
	if cfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if cfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return c, nil
}

// Registry 获取底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Config 获取配置
func (c *Client) Config() *Config {
	return c.config
}

// Handler 返回指标暴露 handler
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
