// Package memory provides an in-process progress store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// Store keeps the progress document in memory behind a mutex. It offers the
// same create-if-absent and atomic increment semantics as the remote backends.
type Store struct {
	mu    sync.Mutex
	doc   *progress.Document
	clock progress.Clock
}

// NewStore constructs an empty Store whose timestamps come from clock.
func NewStore(clock progress.Clock) *Store {
	return &Store{clock: clock}
}

// GetOrCreate returns the document, initializing it on first use.
func (s *Store) GetOrCreate(_ context.Context) (progress.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		doc := progress.NewDocument(s.clock.Now())
		s.doc = &doc
	}
	return copyDocument(*s.doc), nil
}

// Increment adds delta to the named counter.
func (s *Store) Increment(_ context.Context, category progress.Category, delta float64) (progress.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return progress.Document{}, progress.ErrNotFound
	}
	s.doc.Add(category, delta)
	return copyDocument(*s.doc), nil
}

// Reset zeroes the counters and stamps UpdatedAt.
func (s *Store) Reset(_ context.Context) (progress.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return progress.Document{}, progress.ErrNotFound
	}
	s.doc.Zero(s.clock.Now())
	return copyDocument(*s.doc), nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Seed replaces the stored document; intended for tests.
func (s *Store) Seed(doc progress.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyDocument(doc)
	s.doc = &cp
}

func copyDocument(doc progress.Document) progress.Document {
	if doc.CreatedAt != nil {
		t := *doc.CreatedAt
		doc.CreatedAt = &t
	}
	if doc.UpdatedAt != nil {
		t := *doc.UpdatedAt
		doc.UpdatedAt = &t
	}
	return doc
}
