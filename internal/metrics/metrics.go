// Package metrics exposes Prometheus collectors for the progress service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	operationsTotal            *prometheus.CounterVec
	operationDurationSeconds   *prometheus.HistogramVec
	publishTotal               *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		operationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "progress_operations_total",
				Help: "Total number of progress store operations, labeled by operation and result.",
			},
			[]string{"operation", "result"},
		)

		operationDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "progress_operation_duration_seconds",
				Help:    "Histogram of progress store round trips, labeled by operation.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
			},
			[]string{"operation"},
		)

		publishTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "progress_notifications_total",
				Help: "Change notifications handed to the configured publisher, labeled by backend and result.",
			},
			[]string{"backend", "result"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveOperation records one store round trip for the given operation.
func ObserveOperation(operation, result string, duration time.Duration) {
	Init()
	operationsTotal.WithLabelValues(operation, result).Inc()
	operationDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObservePublish counts a change notification delivery attempt.
func ObservePublish(backend string, err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	publishTotal.WithLabelValues(backend, result).Inc()
}
