package progress

import (
	"context"
	"time"
)

// Store persists the singleton progress document. Implementations must make
// GetOrCreate and Increment safe against concurrent callers without relying on
// in-process locks held by the Service.
type Store interface {
	// GetOrCreate returns the document, creating it with zero counters when absent.
	GetOrCreate(ctx context.Context) (Document, error)
	// Increment atomically adds delta to one counter and returns the updated
	// document, or ErrNotFound when the document does not exist.
	Increment(ctx context.Context, category Category, delta float64) (Document, error)
	// Reset zeroes all counters, refreshes UpdatedAt, and returns the updated
	// document, or ErrNotFound when the document does not exist.
	Reset(ctx context.Context) (Document, error)
	// Ping reports whether the backing service is reachable.
	Ping(ctx context.Context) error
	// Close releases client resources.
	Close() error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Emitter receives change events after successful mutations. Emit must never
// block the caller.
type Emitter interface {
	Emit(evt ChangeEvent)
}
