package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/gachadraw/pkg/config"
	"github.com/lk2023060901/gachadraw/pkg/logger"
)

// Client Kafka 客户端，按 topic 缓存生产者并管理消费者组
type Client struct {
	config *Config
	logger logger.Logger

	producers  map[string]*Producer
	producerMu sync.RWMutex

	consumers  map[string]*ConsumerGroup
	consumerMu sync.Mutex

	producerMiddlewares []ProducerMiddleware
	consumerMiddlewares []Middleware

	closed atomic.Bool
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 设置日志
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProducerMiddleware 添加生产者中间件
func WithProducerMiddleware(mw ...ProducerMiddleware) ClientOption {
	return func(c *Client) {
		c.producerMiddlewares = append(c.producerMiddlewares, mw...)
	}
}

// WithConsumerMiddleware 添加消费者中间件
func WithConsumerMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.consumerMiddlewares = append(c.consumerMiddlewares, mw...)
	}
}

// New 创建 Kafka 客户端，不会立即建立连接
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		merged.Producer.Async = cfg.Producer.Async
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    merged,
		logger:    logger.NewNoop(),
		producers: make(map[string]*Producer),
		consumers: make(map[string]*ConsumerGroup),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Producer 获取或创建指定 topic 的生产者
func (c *Client) Producer(topic string) (*Producer, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	c.producerMu.RLock()
	p, ok := c.producers[topic]
	c.producerMu.RUnlock()
	if ok {
		return p, nil
	}

	c.producerMu.Lock()
	defer c.producerMu.Unlock()
	if p, ok = c.producers[topic]; ok {
		return p, nil
	}

	p, err := newProducer(c, topic)
	if err != nil {
		return nil, err
	}
	c.producers[topic] = p
	c.logger.Debug("producer created", "topic", topic)
	return p, nil
}

// Publish 发布单条消息
func (c *Client) Publish(ctx context.Context, topic string, msg *Message) error {
	p, err := c.Producer(topic)
	if err != nil {
		return err
	}
	msg.Topic = topic
	return p.Publish(ctx, msg)
}

// Subscribe 创建消费者组，需调用 Start 开始消费
func (c *Client) Subscribe(topics []string, handler Handler, opts ...ConsumerOption) (*ConsumerGroup, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	if handler == nil {
		return nil, ErrNoHandler
	}

	cg, err := newConsumerGroup(c, topics, handler, opts...)
	if err != nil {
		return nil, err
	}

	c.consumerMu.Lock()
	c.consumers[cg.ID()] = cg
	c.consumerMu.Unlock()

	c.logger.Info("consumer group created", "id", cg.ID(), "group", cg.GroupID(), "topics", topics)
	return cg, nil
}

// HealthCheck 连接第一个 broker 并读取集群元数据
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	dialer, err := newDialer(c.config)
	if err != nil {
		return err
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Brokers()
	return err
}

// Config 返回合并后的配置
func (c *Client) Config() *Config {
	return c.config
}

// Close 关闭所有消费者组和生产者
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	var errs []error

	c.consumerMu.Lock()
	for id, cg := range c.consumers {
		if err := cg.Close(); err != nil {
			c.logger.Error("failed to close consumer group", "id", id, "error", err)
			errs = append(errs, err)
		}
	}
	c.consumers = nil
	c.consumerMu.Unlock()

	c.producerMu.Lock()
	for topic, p := range c.producers {
		if err := p.Close(); err != nil {
			c.logger.Error("failed to close producer", "topic", topic, "error", err)
			errs = append(errs, err)
		}
	}
	c.producers = nil
	c.producerMu.Unlock()

	c.logger.Info("kafka client closed")
	return errors.Join(errs...)
}
