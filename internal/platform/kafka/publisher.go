// Package kafka publishes JSON messages to a single topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/pkg/config"
)

const batchTimeout = 50 * time.Millisecond

// MessageWriter is the part of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Publisher struct {
	writer MessageWriter
	topic  string
	log    *zap.SugaredLogger
}

func NewPublisher(w MessageWriter, topic string, log *zap.SugaredLogger) *Publisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Publisher{writer: w, topic: topic, log: log}
}

// Open builds an async publisher for kafka.topic. It returns nil when no brokers are configured.
func Open(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *config.Config) *Publisher {
	if !cfg.Kafka.Enabled() {
		log.Infow("kafka publishing disabled")
		return nil
	}
	log = log.Named("kafka").With("topic", cfg.Kafka.Topic)
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
		Completion: func(msgs []kafkago.Message, err error) {
			if err != nil {
				log.Errorw("kafka_publish_failed", "messages", len(msgs), "err", err)
			}
		},
	}
	p := NewPublisher(w, cfg.Kafka.Topic, log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return p.Close() },
	})
	log.Infow("kafka publishing enabled", "brokers", cfg.Kafka.Brokers)
	return p
}

func (p *Publisher) Topic() string { return p.topic }

// PublishJSON encodes value and writes it under key. Messages with the same key keep their order.
func (p *Publisher) PublishJSON(ctx context.Context, key string, value any, headers map[string]string) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode kafka message: %w", err)
	}
	msg := kafkago.Message{Key: []byte(key), Value: body}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var Module = fx.Options(
	fx.Provide(Open),
)
