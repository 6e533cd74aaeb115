package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// TestHubBatchBySize verifies the hub flushes immediately once the batch size limit is reached.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     8,
		MaxBatchEvents: 2,
		MaxBatchWait:   time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(progress.ChangeIncrement))
	hub.Emit(sampleEvent(progress.ChangeReset))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1 && len(sink.Batches()[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies the timer-based flush kicks in when the batch is small.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 10,
		MaxBatchWait:   25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(progress.ChangeIncrement))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubFlushesOnWaitUnderSteadyTraffic checks that a busy queue does not
// postpone delivery past MaxBatchWait.
func TestHubFlushesOnWaitUnderSteadyTraffic(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     64,
		MaxBatchEvents: 1000,
		MaxBatchWait:   50 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	started := time.Now()
	deadline := time.After(time.Second)
	for len(sink.Batches()) == 0 {
		select {
		case <-ticker.C:
			hub.Emit(sampleEvent(progress.ChangeIncrement))
		case <-deadline:
			t.Fatalf("no batch delivered after %s of steady traffic", time.Since(started))
		}
	}
	require.Less(t, len(sink.Batches()[0]), 1000)
}

// TestHubEmitNonBlockingWithoutConsumers asserts Emit never blocks callers, even without sinks.
func TestHubEmitNonBlockingWithoutConsumers(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		cfg:    Config{},
		events: make(chan progress.ChangeEvent),
		logger: zap.NewNop(),
	}
	start := time.Now()
	hub.Emit(sampleEvent(progress.ChangeIncrement))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

// TestHubDropsInvalidEvents ensures malformed events never reach sinks.
func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 1}, sink)

	hub.Emit(progress.ChangeEvent{Kind: progress.ChangeIncrement, Category: "sideways", TS: time.Now()})
	hub.Emit(progress.ChangeEvent{Kind: progress.ChangeReset})

	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

// TestHubFlushOnClose ensures Close drains any buffered events before returning.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 100,
		MaxBatchWait:   time.Minute,
	}, sink)

	hub.Emit(sampleEvent(progress.ChangeReset))

	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 1)
	require.True(t, sink.Closed())

	hub.Emit(sampleEvent(progress.ChangeReset))
	require.Len(t, sink.Batches(), 1, "events emitted after Close are ignored")
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]progress.ChangeEvent
	closed  bool
}

func newStubSink() *stubSink {
	return &stubSink{batches: [][]progress.ChangeEvent{}}
}

func (s *stubSink) Consume(_ context.Context, batch []progress.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyBatch := append([]progress.ChangeEvent(nil), batch...)
	s.batches = append(s.batches, copyBatch)
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *stubSink) Batches() [][]progress.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]progress.ChangeEvent, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]progress.ChangeEvent(nil), b...)
	}
	return out
}

func sampleEvent(kind progress.ChangeKind) progress.ChangeEvent {
	evt := progress.ChangeEvent{
		Kind: kind,
		TS:   time.Now(),
	}
	if kind == progress.ChangeIncrement {
		evt.Category = progress.CategoryUpper
		evt.Delta = 1
		evt.Document = progress.Document{Upper: 1}
	}
	return evt
}
