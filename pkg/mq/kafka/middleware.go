package kafka

import (
	"context"
	"time"

	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/otel"
)

// LoggingMiddleware 消费日志
func LoggingMiddleware(log logger.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			start := time.Now()
			err := next(ctx, msg)
			if err != nil {
				log.ErrorContext(ctx, "message consume failed",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"message_id", msg.ID(),
					"duration", time.Since(start),
					"error", err,
				)
				return err
			}
			log.DebugContext(ctx, "message consumed",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"message_id", msg.ID(),
				"duration", time.Since(start),
			)
			return nil
		}
	}
}

// TracingMiddleware 从消息头恢复追踪上下文并创建 consumer span
func TracingMiddleware(tracer string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			ctx = otel.Extract(ctx, msg.Headers)
			ctx, span := otel.StartSpan(ctx, tracer, "kafka.consume", otel.SpanKindConsumer,
				otel.String("messaging.system", "kafka"),
				otel.String("messaging.destination", msg.Topic),
				otel.Int("messaging.kafka.partition", msg.Partition),
				otel.Int64("messaging.kafka.offset", msg.Offset),
			)
			defer span.End()

			err := next(ctx, msg)
			otel.RecordError(span, err)
			return err
		}
	}
}

// RecoveryMiddleware 将处理器 panic 转为 ErrConsumerPanic
func RecoveryMiddleware(log logger.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("consumer panic recovered",
						"topic", msg.Topic,
						"offset", msg.Offset,
						"panic", r,
					)
					err = ErrConsumerPanic
				}
			}()
			return next(ctx, msg)
		}
	}
}

// RetryMiddleware 线性退避重试
func RetryMiddleware(maxRetries int, backoff time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			var err error
			for i := 0; i <= maxRetries; i++ {
				if i > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(backoff * time.Duration(i)):
					}
				}
				if err = next(ctx, msg); err == nil {
					return nil
				}
			}
			return err
		}
	}
}

// ProducerLoggingMiddleware 发布日志
func ProducerLoggingMiddleware(log logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next func(context.Context, *Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			log.ErrorContext(ctx, "message publish failed",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"message_id", msg.ID(),
				"duration", time.Since(start),
				"error", err,
			)
			return err
		}
		log.DebugContext(ctx, "message published",
			"topic", msg.Topic,
			"message_id", msg.ID(),
			"duration", time.Since(start),
		)
		return nil
	}
}

// ProducerTracingMiddleware 创建 producer span 并把追踪上下文注入消息头
func ProducerTracingMiddleware(tracer string) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next func(context.Context, *Message) error) error {
		ctx, span := otel.StartSpan(ctx, tracer, "kafka.publish", otel.SpanKindProducer,
			otel.String("messaging.system", "kafka"),
			otel.String("messaging.destination", msg.Topic),
		)
		defer span.End()

		if msg.Headers == nil {
			msg.Headers = make(map[string]string)
		}
		otel.Inject(ctx, msg.Headers)

		err := next(ctx, msg)
		otel.RecordError(span, err)
		return err
	}
}

// ProducerRecoveryMiddleware 将发布链路 panic 转为 ErrProducerPanic
func ProducerRecoveryMiddleware(log logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next func(context.Context, *Message) error) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("producer panic recovered", "topic", msg.Topic, "panic", r)
				err = ErrProducerPanic
			}
		}()
		return next(ctx, msg)
	}
}
