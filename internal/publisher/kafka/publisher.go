// Package kafka publishes change notifications to a Kafka topic using
// segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config describes the brokers and topic a Publisher writes to.
type Config struct {
	Brokers      []string
	Topic        string
	Key          string
	BatchTimeout time.Duration
}

// messageWriter is the subset of *kafka.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes JSON payloads to a single Kafka topic.
type Publisher struct {
	writer messageWriter
	key    []byte
}

// New builds a Publisher backed by a kafka.Writer.
func New(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: batchTimeout,
	}
	return newWithWriter(w, cfg.Key), nil
}

func newWithWriter(w messageWriter, key string) *Publisher {
	return &Publisher{writer: w, key: []byte(key)}
}

// Publish writes payload as one message keyed by the configured key so all
// changes to the document land on the same partition in order. The returned
// id is the message timestamp in Unix nanoseconds.
func (p *Publisher) Publish(ctx context.Context, _ string, payload any) (string, error) {
	if p == nil || p.writer == nil {
		return "", fmt.Errorf("kafka publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	now := time.Now().UTC()
	msg := kafka.Message{
		Key:   p.key,
		Value: data,
		Time:  now,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("write kafka message: %w", err)
	}
	return strconv.FormatInt(now.UnixNano(), 10), nil
}

// Close flushes buffered messages and closes the writer.
func (p *Publisher) Close(context.Context) error {
	if p == nil || p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
