package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/segmentio/kafka-go"
)

// ConsumerGroup 消费者组，拉取协程运行在 ants 协程池中
type ConsumerGroup struct {
	client  *Client
	id      string
	groupID string
	topics  []string
	handler Handler
	reader  *kafka.Reader
	pool    *ants.Pool

	state  atomic.Int32
	stopCh chan struct{}
	wg     sync.WaitGroup

	concurrency int
	autoCommit  bool

	consumed  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// ConsumerOption 消费者选项
type ConsumerOption func(*ConsumerGroup)

// WithConcurrency 设置拉取协程数
func WithConcurrency(n int) ConsumerOption {
	return func(cg *ConsumerGroup) {
		if n > 0 {
			cg.concurrency = n
		}
	}
}

// WithGroupID 覆盖配置中的消费者组 ID
func WithGroupID(groupID string) ConsumerOption {
	return func(cg *ConsumerGroup) {
		if groupID != "" {
			cg.groupID = groupID
		}
	}
}

func newConsumerGroup(c *Client, topics []string, handler Handler, opts ...ConsumerOption) (*ConsumerGroup, error) {
	cfg := c.config.Consumer

	cg := &ConsumerGroup{
		client:      c,
		id:          uuid.NewString(),
		groupID:     cfg.GroupID,
		topics:      topics,
		stopCh:      make(chan struct{}),
		concurrency: cfg.Concurrency,
		autoCommit:  cfg.CommitInterval > 0,
	}
	for _, opt := range opts {
		opt(cg)
	}
	if cg.concurrency < 1 {
		cg.concurrency = 1
	}
	cg.handler = chain(handler, c.consumerMiddlewares)

	rc := kafka.ReaderConfig{
		Brokers:           c.config.Brokers,
		GroupID:           cg.groupID,
		GroupTopics:       topics,
		MinBytes:          cfg.MinBytes,
		MaxBytes:          cfg.MaxBytes,
		MaxWait:           cfg.MaxWait,
		StartOffset:       cfg.StartOffset,
		HeartbeatInterval: cfg.HeartbeatInterval,
		SessionTimeout:    cfg.SessionTimeout,
		RebalanceTimeout:  cfg.RebalanceTimeout,
		CommitInterval:    cfg.CommitInterval,
	}
	if c.config.TLS != nil || c.config.SASL != nil {
		dialer, err := newDialer(c.config)
		if err != nil {
			return nil, err
		}
		rc.Dialer = dialer
	}

	pool, err := ants.NewPool(cg.concurrency, ants.WithPanicHandler(func(p interface{}) {
		c.logger.Error("consumer worker panic", "id", cg.id, "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("kafka: create worker pool: %w", err)
	}
	cg.pool = pool
	cg.reader = kafka.NewReader(rc)
	return cg, nil
}

// ID 返回实例 ID
func (cg *ConsumerGroup) ID() string {
	return cg.id
}

// GroupID 返回 Kafka 消费者组 ID
func (cg *ConsumerGroup) GroupID() string {
	return cg.groupID
}

// Start 启动消费，立即返回
func (cg *ConsumerGroup) Start(ctx context.Context) error {
	if !cg.state.CompareAndSwap(int32(ConsumerStateIdle), int32(ConsumerStateRunning)) {
		return ErrConsumerAlreadyRunning
	}

	for i := 0; i < cg.concurrency; i++ {
		worker := i
		cg.wg.Add(1)
		if err := cg.pool.Submit(func() {
			defer cg.wg.Done()
			cg.consume(ctx, worker)
		}); err != nil {
			cg.wg.Done()
			return fmt.Errorf("kafka: submit consumer worker: %w", err)
		}
	}

	cg.client.logger.Info("consumer group started",
		"id", cg.id,
		"group", cg.groupID,
		"topics", cg.topics,
		"concurrency", cg.concurrency,
	)
	return nil
}

func (cg *ConsumerGroup) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-cg.stopCh:
		return true
	default:
		return false
	}
}

func (cg *ConsumerGroup) consume(ctx context.Context, worker int) {
	timeout := cg.client.config.Consumer.FetchTimeout
	for !cg.stopping(ctx) {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		km, err := cg.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if cg.stopping(ctx) {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			cg.client.logger.Error("failed to fetch message", "id", cg.id, "worker", worker, "error", err)
			continue
		}
		cg.consumed.Add(1)

		msg := &Message{
			Topic:     km.Topic,
			Key:       km.Key,
			Value:     km.Value,
			Partition: km.Partition,
			Offset:    km.Offset,
			Timestamp: km.Time,
			Headers:   make(map[string]string, len(km.Headers)),
		}
		for _, h := range km.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}

		if err := cg.handler(ctx, msg); err != nil {
			// 不提交 offset，重平衡或重启后重新投递
			cg.failed.Add(1)
			continue
		}
		cg.succeeded.Add(1)

		if !cg.autoCommit {
			if err := cg.reader.CommitMessages(ctx, km); err != nil {
				cg.client.logger.Error("failed to commit message",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
		}
	}
}

// Stop 停止消费并等待拉取协程退出
func (cg *ConsumerGroup) Stop() error {
	if !cg.state.CompareAndSwap(int32(ConsumerStateRunning), int32(ConsumerStateStopping)) {
		switch cg.State() {
		case ConsumerStateStopping, ConsumerStateStopped:
			return nil
		}
		return ErrConsumerNotRunning
	}
	close(cg.stopCh)
	cg.wg.Wait()
	cg.state.Store(int32(ConsumerStateStopped))
	cg.client.logger.Info("consumer group stopped", "id", cg.id)
	return nil
}

// Close 停止消费并释放 reader 与协程池
func (cg *ConsumerGroup) Close() error {
	_ = cg.Stop()
	cg.pool.Release()
	return cg.reader.Close()
}

// State 返回消费者状态
func (cg *ConsumerGroup) State() ConsumerState {
	return ConsumerState(cg.state.Load())
}

// Stats 返回统计信息
func (cg *ConsumerGroup) Stats() ConsumerStats {
	return ConsumerStats{
		MessagesConsumed:  cg.consumed.Load(),
		MessagesSucceeded: cg.succeeded.Load(),
		MessagesFailed:    cg.failed.Load(),
	}
}
