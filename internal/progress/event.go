package progress

import (
	"errors"
	"fmt"
	"time"
)

// ChangeKind denotes which mutation produced a ChangeEvent.
type ChangeKind string

// Supported change kinds.
const (
	ChangeIncrement ChangeKind = "progress.updated"
	ChangeReset     ChangeKind = "progress.reset"
)

// ChangeEvent describes one successful mutation of the progress document.
type ChangeEvent struct {
	// Kind is the mutation type.
	Kind ChangeKind `json:"type"`
	// Category is set for increments only.
	Category Category `json:"category,omitempty"`
	// Delta is the increment applied; zero for resets.
	Delta float64 `json:"delta,omitempty"`
	// Document is the state returned to the caller after the mutation.
	Document Document `json:"document"`
	// TS is the service-side UTC timestamp of the mutation.
	TS time.Time `json:"at"`
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"requestId,omitempty"`
	// Trace holds the propagated trace context of the originating request so
	// asynchronous sinks can continue it. Not part of the wire payload.
	Trace map[string]string `json:"-"`
}

// Validate performs coarse validation on ChangeEvent payloads.
func (e ChangeEvent) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case ChangeIncrement:
		if _, err := ParseCategory(string(e.Category)); err != nil {
			return fmt.Errorf("increment event: %w", err)
		}
	case ChangeReset:
		if e.Category != "" {
			return errors.New("reset event must not carry a category")
		}
	default:
		return fmt.Errorf("unknown change kind %q", e.Kind)
	}
	return nil
}
