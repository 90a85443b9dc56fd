package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

func (c *Client) register(col prometheus.Collector) error {
	if err := c.registry.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return ErrMetricExists
		}
		return err
	}
	return nil
}

// NewCounter 创建并注册 Counter
func (c *Client) NewCounter(name, help string, labels []string) (*CounterVec, error) {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.register(v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewGauge 创建并注册 Gauge
func (c *Client) NewGauge(name, help string, labels []string) (*GaugeVec, error) {
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.register(v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewHistogram 创建并注册 Histogram，buckets 为空时使用默认桶
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*HistogramVec, error) {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	if err := c.register(v); err != nil {
		return nil, err
	}
	return v, nil
}

// MustNewCounter 创建 Counter，失败则 panic
func (c *Client) MustNewCounter(name, help string, labels []string) *CounterVec {
	v, err := c.NewCounter(name, help, labels)
	if err != nil {
		panic(err)
	}
	return v
}

// MustNewGauge 创建 Gauge，失败则 panic
func (c *Client) MustNewGauge(name, help string, labels []string) *GaugeVec {
	v, err := c.NewGauge(name, help, labels)
	if err != nil {
		panic(err)
	}
	return v
}

// MustNewHistogram 创建 Histogram，失败则 panic
func (c *Client) MustNewHistogram(name, help string, labels []string, buckets []float64) *HistogramVec {
	v, err := c.NewHistogram(name, help, labels, buckets)
	if err != nil {
		panic(err)
	}
	return v
}
