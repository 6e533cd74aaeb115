package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/metrics"
)

const defaultOperationTimeout = 5 * time.Second

// Operation names used for metrics and logs.
const (
	OpGet    = "get"
	OpUpdate = "update"
	OpReset  = "reset"
)

// Service implements the three progress operations over a Store. It keeps no
// copy of the document between calls.
type Service struct {
	store   Store
	emitter Emitter
	clock   Clock
	timeout time.Duration
	logger  *zap.Logger
}

// ServiceConfig carries optional collaborators for NewService.
//   - Emitter: receives a ChangeEvent after each successful mutation (optional).
//   - Clock: timestamps change events (defaults to UTC wall time).
//   - OperationTimeout: upper bound for each store call (default 5s).
//   - Logger: structured logger (defaults to a no-op logger).
type ServiceConfig struct {
	Emitter          Emitter
	Clock            Clock
	OperationTimeout time.Duration
	Logger           *zap.Logger
}

// NewService wires a Service around the provided store.
func NewService(store Store, cfg ServiceConfig) (*Service, error) {
	if store == nil {
		return nil, errors.New("progress store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = utcClock{}
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		emitter: cfg.Emitter,
		clock:   cfg.Clock,
		timeout: cfg.OperationTimeout,
		logger:  cfg.Logger,
	}, nil
}

// GetProgress returns the singleton document, lazily creating it with all
// counters at zero on first access.
func (s *Service) GetProgress(ctx context.Context) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	doc, err := s.store.GetOrCreate(ctx)
	s.observe(OpGet, err, start)
	if err != nil {
		return Document{}, fmt.Errorf("get progress: %w", err)
	}
	return doc, nil
}

// UpdateProgress adds value to the named counter. The document must already
// exist; callers receive ErrNotFound otherwise.
func (s *Service) UpdateProgress(ctx context.Context, category string, value float64) (Document, error) {
	cat, err := ParseCategory(category)
	if err != nil {
		return Document{}, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Document{}, ErrInvalidValue
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	doc, err := s.store.Increment(ctx, cat, value)
	s.observe(OpUpdate, err, start)
	if err != nil {
		return Document{}, fmt.Errorf("update progress %s: %w", cat, err)
	}
	s.logger.Debug("progress incremented",
		zap.String("category", cat.String()),
		zap.Float64("delta", value),
		zap.Float64("value", doc.Value(cat)),
	)
	s.emit(ctx, ChangeEvent{Kind: ChangeIncrement, Category: cat, Delta: value, Document: doc})
	return doc, nil
}

// ResetProgress zeroes every counter. The document must already exist.
func (s *Service) ResetProgress(ctx context.Context) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	doc, err := s.store.Reset(ctx)
	s.observe(OpReset, err, start)
	if err != nil {
		return Document{}, fmt.Errorf("reset progress: %w", err)
	}
	s.logger.Info("progress reset")
	s.emit(ctx, ChangeEvent{Kind: ChangeReset, Document: doc})
	return doc, nil
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, evt ChangeEvent) {
	if s.emitter == nil {
		return
	}
	evt.TS = s.clock.Now()
	evt.RequestID = RequestIDFromContext(ctx)
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) > 0 {
		evt.Trace = carrier
	}
	s.emitter.Emit(evt)
}

func (s *Service) observe(op string, err error, start time.Time) {
	metrics.ObserveOperation(op, resultLabel(err), time.Since(start))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}
