// Package publisher 把抽卡事件写入 Kafka
package publisher

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/gachadraw/app/draw/internal/engine"
	"github.com/lk2023060901/gachadraw/app/draw/internal/model"
	"github.com/lk2023060901/gachadraw/pkg/mq/kafka"
)

// Topics 各事件所写的 topic
type Topics struct {
	Debit     string `mapstructure:"debit"`
	Inventory string `mapstructure:"inventory"`
	Emission  string `mapstructure:"emission"`
	History   string `mapstructure:"history"`
	SoldOut   string `mapstructure:"sold_out"`
}

// DefaultTopics 默认 topic
func DefaultTopics() Topics {
	return Topics{
		Debit:     "gacha.point.debit",
		Inventory: "gacha.inventory",
		Emission:  "gacha.emission",
		History:   "gacha.history",
		SoldOut:   "gacha.soldout",
	}
}

// Producer 由 *kafka.Client 实现
type Producer interface {
	Publish(ctx context.Context, topic string, msg *kafka.Message) error
}

var (
	_ engine.LedgerPort = (*Publisher)(nil)
	_ engine.EventPort  = (*Publisher)(nil)
	_ engine.NotifyPort = (*Publisher)(nil)
)

// Publisher 实现引擎的三个出站端口
type Publisher struct {
	producer Producer
	topics   Topics
}

func New(p Producer, topics Topics) *Publisher {
	def := DefaultTopics()
	if topics.Debit == "" {
		topics.Debit = def.Debit
	}
	if topics.Inventory == "" {
		topics.Inventory = def.Inventory
	}
	if topics.Emission == "" {
		topics.Emission = def.Emission
	}
	if topics.History == "" {
		topics.History = def.History
	}
	if topics.SoldOut == "" {
		topics.SoldOut = def.SoldOut
	}
	return &Publisher{producer: p, topics: topics}
}

// Topics 生效的 topic 配置
func (p *Publisher) Topics() Topics {
	return p.topics
}

func (p *Publisher) send(ctx context.Context, topic, key, dedupID string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s message", topic)
	}
	msg := &kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if dedupID != "" {
		msg.Headers = map[string]string{kafka.HeaderMessageID: dedupID}
	}
	if err := p.producer.Publish(ctx, topic, msg); err != nil {
		return errors.Wrapf(err, "publish to %s", topic)
	}
	return nil
}

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// PublishDebit 按用户分区，保证同一用户流水有序
func (p *Publisher) PublishDebit(ctx context.Context, msg *model.DebitMessage) error {
	return p.send(ctx, p.topics.Debit, userKey(msg.UserID), msg.DedupID, msg)
}

func (p *Publisher) PublishInventory(ctx context.Context, msg *model.InventoryMessage) error {
	return p.send(ctx, p.topics.Inventory, msg.DedupID, msg.DedupID, msg)
}

func (p *Publisher) PublishEmission(ctx context.Context, msg *model.EmissionMessage) error {
	return p.send(ctx, p.topics.Emission, msg.GachaID, msg.DedupID, msg)
}

func (p *Publisher) PublishHistory(ctx context.Context, msg *model.HistoryMessage) error {
	return p.send(ctx, p.topics.History, userKey(msg.UserID), msg.DedupID, msg)
}

func (p *Publisher) NotifySoldOut(ctx context.Context, msg *model.SoldOutMessage) error {
	return p.send(ctx, p.topics.SoldOut, msg.GachaID, msg.DedupID, msg)
}
