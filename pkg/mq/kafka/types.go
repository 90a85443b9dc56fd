package kafka

import (
	"context"
	"time"
)

// HeaderMessageID 去重 ID 所在的消息头，消费端据此做幂等
const HeaderMessageID = "message-id"

// Message 消息结构
type Message struct {
	Topic string
	// Key 分区路由键，同一 Key 落在同一分区
	Key     []byte
	Value   []byte
	Headers map[string]string

	// 以下字段消费时填充
	Partition int
	Offset    int64
	Timestamp time.Time
}

// ID 返回消息去重 ID
func (m *Message) ID() string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[HeaderMessageID]
}

// Handler 消息处理器
type Handler func(ctx context.Context, msg *Message) error

// Middleware 消费者中间件
type Middleware func(Handler) Handler

// ProducerMiddleware 生产者中间件
type ProducerMiddleware func(ctx context.Context, msg *Message, next func(context.Context, *Message) error) error

// ConsumerState 消费者状态
type ConsumerState int32

const (
	ConsumerStateIdle ConsumerState = iota
	ConsumerStateRunning
	ConsumerStateStopping
	ConsumerStateStopped
)

func (s ConsumerState) String() string {
	switch s {
	case ConsumerStateIdle:
		return "idle"
	case ConsumerStateRunning:
		return "running"
	case ConsumerStateStopping:
		return "stopping"
	case ConsumerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ConsumerStats 消费者统计
type ConsumerStats struct {
	MessagesConsumed  int64
	MessagesSucceeded int64
	MessagesFailed    int64
}

// ProducerStats 生产者统计
type ProducerStats struct {
	MessagesProduced  int64
	MessagesSucceeded int64
	MessagesFailed    int64
}

func chain(h Handler, mws []Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
