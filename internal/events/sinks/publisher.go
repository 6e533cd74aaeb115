package sinks

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/metrics"
	"github.com/JakeFAU/progress-service/internal/progress"
)

// Publisher sends a payload to a message broker and returns the broker's id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// PublisherSink forwards each change event to a broker. Delivery is best
// effort: failures are logged and counted, and never retried.
type PublisherSink struct {
	publisher Publisher
	topic     string
	backend   string
	closer    func(context.Context) error
	logger    *zap.Logger
}

// PublisherOption customises a PublisherSink.
type PublisherOption func(*PublisherSink)

// WithCloser registers a hook run from Close, typically to flush and release
// the underlying broker client.
func WithCloser(fn func(context.Context) error) PublisherOption {
	return func(s *PublisherSink) {
		s.closer = fn
	}
}

// NewPublisherSink builds a sink for publisher. backend labels the
// progress_notifications_total metric.
func NewPublisherSink(
	publisher Publisher,
	backend, topic string,
	logger *zap.Logger,
	opts ...PublisherOption,
) *PublisherSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PublisherSink{
		publisher: publisher,
		topic:     topic,
		backend:   backend,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Consume publishes every event in the batch under the trace context captured
// when the event was emitted. It returns the joined publish errors so the hub
// can log a single warning per batch.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.ChangeEvent) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	var errs []error
	for _, evt := range batch {
		pubCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(evt.Trace))
		id, err := s.publisher.Publish(pubCtx, s.topic, evt)
		metrics.ObservePublish(s.backend, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", evt.Kind, err))
			continue
		}
		s.logger.Debug("change notification published",
			zap.String("backend", s.backend),
			zap.String("message_id", id),
			zap.String("type", string(evt.Kind)),
		)
	}
	return errors.Join(errs...)
}

// Close runs the configured closer, if any.
func (s *PublisherSink) Close(ctx context.Context) error {
	if s == nil || s.closer == nil {
		return nil
	}
	if err := s.closer(ctx); err != nil {
		return fmt.Errorf("close %s publisher: %w", s.backend, err)
	}
	return nil
}
