// Package metrics 抽卡服务指标
package metrics

import (
	"strconv"

	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/prometheus"
)

// DrawMetrics 抽卡服务指标
type DrawMetrics struct {
	// 抽卡指标
	DrawTotal    *prometheus.CounterVec   // 抽卡请求数（按结果码）
	DrawDuration *prometheus.HistogramVec // 抽卡耗时（按模式）
	PrizeTotal   *prometheus.CounterVec   // 发放奖品数（按来源）

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// 事件消费
	ConsumeTotal *prometheus.CounterVec // 按 topic、结果
}

// New 在客户端 Registry 上注册全部指标
func New(client *prometheus.Client) (*DrawMetrics, error) {
	m := &DrawMetrics{}
	var err error

	if m.DrawTotal, err = client.NewCounter("draws_total", "抽卡请求总数", []string{"code"}); err != nil {
		return nil, err
	}
	if m.DrawDuration, err = client.NewHistogram("draw_duration_seconds", "抽卡处理延迟（秒）",
		[]string{"pattern"}, []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5}); err != nil {
		return nil, err
	}
	if m.PrizeTotal, err = client.NewCounter("prizes_total", "发放奖品总数", []string{"source"}); err != nil {
		return nil, err
	}
	if m.DBQueryTotal, err = client.NewCounter("db_queries_total", "数据库操作总数", []string{"operation", "result"}); err != nil {
		return nil, err
	}
	if m.DBQueryDuration, err = client.NewHistogram("db_query_duration_seconds", "数据库操作延迟（秒）",
		[]string{"operation"}, []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}); err != nil {
		return nil, err
	}
	if m.ConsumeTotal, err = client.NewCounter("events_consumed_total", "事件消费总数", []string{"topic", "result"}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordDraw 记录一次抽卡，成功时 code 标签为 ok
func (m *DrawMetrics) RecordDraw(pattern model.Pattern, err error, duration float64, result *model.DrawResult) {
	code := "ok"
	if err != nil {
		code = strconv.Itoa(int(model.CodeOf(err)))
	}
	m.DrawTotal.WithLabelValues(code).Inc()
	m.DrawDuration.WithLabelValues(pattern.String()).Observe(duration)

	if result == nil {
		return
	}
	for _, p := range result.Prizes {
		source := "pool"
		if p.Pity {
			source = "pity"
		}
		m.PrizeTotal.WithLabelValues(source).Inc()
	}
}

// RecordDBQuery 记录数据库操作
func (m *DrawMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.DBQueryTotal.WithLabelValues(operation, result).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// RecordConsume 记录事件消费结果：applied、duplicate、failed
func (m *DrawMetrics) RecordConsume(topic, result string) {
	m.ConsumeTotal.WithLabelValues(topic, result).Inc()
}
