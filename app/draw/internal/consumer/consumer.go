// Package consumer 消费抽卡事件并幂等落库
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/metrics"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/app/draw/internal/publisher"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/mq/kafka"
	"github.com/lk2023060901/gachadraw/pkg/notify"
)

// Store 落库接口，返回 false 表示该消息已处理过
type Store interface {
	ApplyDebit(ctx context.Context, messageID string, msg *model.DebitMessage) (bool, error)
	ApplyInventory(ctx context.Context, messageID string, msg *model.InventoryMessage) (bool, error)
	ApplyEmission(ctx context.Context, messageID string, msg *model.EmissionMessage) (bool, error)
	ApplyHistory(ctx context.Context, messageID string, msg *model.HistoryMessage) (bool, error)
}

// Dispatcher 按 topic 分发消息
type Dispatcher struct {
	store   Store
	topics  publisher.Topics
	alerts  notify.Notifier
	metrics *metrics.DrawMetrics
	logger  logger.Logger
}

func NewDispatcher(store Store, topics publisher.Topics, alerts notify.Notifier, m *metrics.DrawMetrics, l logger.Logger) *Dispatcher {
	if alerts == nil {
		alerts = notify.Noop{}
	}
	return &Dispatcher{
		store:   store,
		topics:  topics,
		alerts:  alerts,
		metrics: m,
		logger:  l.Named("consumer"),
	}
}

// Topics 需要订阅的 topic
func (d *Dispatcher) Topics() []string {
	return []string{d.topics.Debit, d.topics.Inventory, d.topics.Emission, d.topics.History, d.topics.SoldOut}
}

// messageID 没有去重头时退化为分区位点
func messageID(msg *kafka.Message) string {
	if id := msg.ID(); id != "" {
		return id
	}
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}

func decode[T any](msg *kafka.Message) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(msg.Value, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Handle 实现 kafka.Handler；无法解析的消息记录后丢弃
func (d *Dispatcher) Handle(ctx context.Context, msg *kafka.Message) error {
	id := messageID(msg)

	var (
		applied bool
		err     error
	)
	switch msg.Topic {
	case d.topics.Debit:
		applied, err = apply(ctx, msg, id, d.store.ApplyDebit)
	case d.topics.Inventory:
		applied, err = apply(ctx, msg, id, d.store.ApplyInventory)
	case d.topics.Emission:
		applied, err = apply(ctx, msg, id, d.store.ApplyEmission)
	case d.topics.History:
		applied, err = apply(ctx, msg, id, d.store.ApplyHistory)
	case d.topics.SoldOut:
		return d.soldOut(ctx, msg)
	default:
		d.logger.WarnContext(ctx, "message from unexpected topic", "topic", msg.Topic, "message_id", id)
		return nil
	}

	var bad *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &bad) || errors.As(err, &typ):
		d.metrics.RecordConsume(msg.Topic, "malformed")
		d.logger.ErrorContext(ctx, "drop malformed message", "topic", msg.Topic, "message_id", id, "error", err)
		return nil
	case err != nil:
		d.metrics.RecordConsume(msg.Topic, "failed")
		return err
	case !applied:
		d.metrics.RecordConsume(msg.Topic, "duplicate")
		d.logger.DebugContext(ctx, "duplicate message skipped", "topic", msg.Topic, "message_id", id)
		return nil
	}
	d.metrics.RecordConsume(msg.Topic, "applied")
	return nil
}

func apply[T any](ctx context.Context, msg *kafka.Message, id string, fn func(context.Context, string, *T) (bool, error)) (bool, error) {
	v, err := decode[T](msg)
	if err != nil {
		return false, err
	}
	return fn(ctx, id, v)
}

func (d *Dispatcher) soldOut(ctx context.Context, msg *kafka.Message) error {
	v, err := decode[model.SoldOutMessage](msg)
	if err != nil {
		d.metrics.RecordConsume(msg.Topic, "malformed")
		d.logger.ErrorContext(ctx, "drop malformed message", "topic", msg.Topic, "error", err)
		return nil
	}
	d.logger.InfoContext(ctx, "gacha sold out", "gacha_id", v.GachaID, "notify_at", v.NotifyAt)

	// 告警失败不重试，避免阻塞分区
	err = d.alerts.Send(ctx, &notify.Alert{
		Level:    notify.LevelWarning,
		Service:  "gacha-draw",
		Summary:  "卡池奖品已全部抽完",
		Labels:   map[string]string{"gacha_id": v.GachaID, "notifier": d.alerts.Name()},
		StartsAt: time.Unix(v.NotifyAt, 0),
	})
	if err != nil {
		d.metrics.RecordConsume(msg.Topic, "failed")
		d.logger.ErrorContext(ctx, "send sold out alert",
			"gacha_id", v.GachaID, "partition", msg.Partition, "error", err)
		return nil
	}
	d.metrics.RecordConsume(msg.Topic, "applied")
	return nil
}
