package sinks

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// PrometheusSink mirrors the progress document into Prometheus collectors so
// dashboards can chart counter values without querying the store.
type PrometheusSink struct {
	changes    *prometheus.CounterVec
	increments *prometheus.CounterVec
	values     *prometheus.GaugeVec
}

// NewPrometheusSink registers the collectors against the provided registry.
// Collectors already registered by an earlier sink are reused.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_changes_total",
			Help: "Successful mutations of the progress document, partitioned by type.",
		}, []string{"type"}),
		increments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_increment_magnitude_total",
			Help: "Sum of absolute increment values applied per category.",
		}, []string{"category"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "progress_counter_value",
			Help: "Last observed counter value per category.",
		}, []string{"category"}),
	}
	var err error
	if s.changes, err = register(reg, s.changes); err != nil {
		return nil, err
	}
	if s.increments, err = register(reg, s.increments); err != nil {
		return nil, err
	}
	if s.values, err = register(reg, s.values); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("register change collector: %w", err)
}

// Consume updates the collectors from the batch. Events are applied in order,
// so the gauges end at the last document in the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.ChangeEvent) error {
	for _, evt := range batch {
		s.changes.WithLabelValues(string(evt.Kind)).Inc()
		if evt.Kind == progress.ChangeIncrement {
			delta := evt.Delta
			if delta < 0 {
				delta = -delta
			}
			s.increments.WithLabelValues(evt.Category.String()).Add(delta)
		}
		for _, c := range progress.Categories() {
			s.values.WithLabelValues(c.String()).Set(evt.Document.Value(c))
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
