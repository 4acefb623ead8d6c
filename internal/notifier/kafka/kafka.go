// Package kafka publishes signal events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/newthinker/pulse/internal/core"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds producer settings.
type Config struct {
	Brokers      []string
	Topic        string
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
}

// Option configures the producer.
type Option func(*Config)

// WithCompression sets gzip, snappy, lz4 or zstd.
func WithCompression(c string) Option { return func(cfg *Config) { cfg.Compression = c } }

// WithMaxAttempts sets the writer's attempt limit.
func WithMaxAttempts(n int) Option { return func(cfg *Config) { cfg.MaxAttempts = n } }

// WithWriteTimeout sets the writer's write timeout.
func WithWriteTimeout(d time.Duration) Option { return func(cfg *Config) { cfg.WriteTimeout = d } }

// Kafka implements the Notifier interface. Messages are keyed by subject so
// events for one instrument or group stay ordered within a partition.
type Kafka struct {
	topic  string
	writer messageWriter
}

// New creates a Kafka notifier.
func New(brokers []string, topic string, opts ...Option) (*Kafka, error) {
	cfg := &Config{
		Brokers:      brokers,
		Topic:        topic,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("kafka: brokers are required"))
	}
	if cfg.Topic == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("kafka: topic is required"))
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Kafka{topic: cfg.Topic, writer: w}, nil
}

func (k *Kafka) Name() string { return "kafka" }

// Topic returns the destination topic.
func (k *Kafka) Topic() string { return k.topic }

func (k *Kafka) Send(ctx context.Context, event core.SignalEvent) error {
	return k.SendBatch(ctx, []core.SignalEvent{event})
}

// SendBatch publishes one message per event in a single write.
func (k *Kafka) SendBatch(ctx context.Context, events []core.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		v, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("kafka: marshal event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Subject),
			Value: v,
			Time:  e.Time,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(e.Kind)},
			},
		})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publish to %s: %w", k.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	if k.writer != nil {
		return k.writer.Close()
	}
	return nil
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}
