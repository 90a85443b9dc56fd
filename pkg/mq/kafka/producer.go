package kafka

import (
	"context"
	"sync/atomic"

	"github.com/segmentio/kafka-go"
)

// Producer 单 topic 生产者
type Producer struct {
	client  *Client
	topic   string
	writer  *kafka.Writer
	publish func(context.Context, *Message) error

	produced  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	closed atomic.Bool
}

func newProducer(c *Client, topic string) (*Producer, error) {
	cfg := c.config.Producer

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		MaxAttempts:            cfg.MaxRetries + 1,
		WriteBackoffMin:        cfg.RetryBackoff,
		WriteTimeout:           cfg.WriteTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Async:                  cfg.Async,
		Compression:            parseCompression(cfg.Compression),
		AllowAutoTopicCreation: true,
	}
	if c.config.TLS != nil || c.config.SASL != nil {
		t, err := newTransport(c.config)
		if err != nil {
			return nil, err
		}
		w.Transport = t
	}

	p := &Producer{client: c, topic: topic, writer: w}

	publish := p.write
	for i := len(c.producerMiddlewares) - 1; i >= 0; i-- {
		mw, next := c.producerMiddlewares[i], publish
		publish = func(ctx context.Context, msg *Message) error {
			return mw(ctx, msg, next)
		}
	}
	p.publish = publish
	return p, nil
}

// Publish 经过中间件链发布消息，同步模式下返回即代表 broker 已确认
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	msg.Topic = p.topic
	p.produced.Add(1)

	if err := p.publish(ctx, msg); err != nil {
		p.failed.Add(1)
		return err
	}
	p.succeeded.Add(1)
	return nil
}

func (p *Producer) write(ctx context.Context, msg *Message) error {
	km := kafka.Message{Key: msg.Key, Value: msg.Value}
	if len(msg.Headers) > 0 {
		km.Headers = make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}
	return p.writer.WriteMessages(ctx, km)
}

// Topic 返回 topic 名称
func (p *Producer) Topic() string {
	return p.topic
}

// Stats 返回统计信息
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesProduced:  p.produced.Load(),
		MessagesSucceeded: p.succeeded.Load(),
		MessagesFailed:    p.failed.Load(),
	}
}

// Close 关闭生产者，刷新未发送的批次
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.client.logger.Debug("producer closing", "topic", p.topic)
	return p.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}
