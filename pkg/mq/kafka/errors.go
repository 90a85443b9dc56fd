package kafka

import "errors"

var (
	ErrNoBrokers              = errors.New("kafka: no brokers configured")
	ErrEmptyTopic             = errors.New("kafka: empty topic")
	ErrEmptyGroupID           = errors.New("kafka: empty group id")
	ErrClientClosed           = errors.New("kafka: client is closed")
	ErrProducerClosed         = errors.New("kafka: producer is closed")
	ErrConsumerAlreadyRunning = errors.New("kafka: consumer is already running")
	ErrConsumerNotRunning     = errors.New("kafka: consumer is not running")
	ErrNoHandler              = errors.New("kafka: no handler provided")
	ErrNoTopics               = errors.New("kafka: no topics provided")
	ErrConsumerPanic          = errors.New("kafka: consumer panic")
	ErrProducerPanic          = errors.New("kafka: producer panic")
	ErrUnknownMechanism       = errors.New("kafka: unknown sasl mechanism")
)
