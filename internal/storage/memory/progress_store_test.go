package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JakeFAU/progress-service/internal/progress"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	created := time.Unix(1700000000, 0).UTC()
	store := NewStore(fixedClock{now: created})
	ctx := context.Background()

	if _, err := store.Increment(ctx, progress.CategoryTrauma, 1); !errors.Is(err, progress.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before init, got %v", err)
	}
	if _, err := store.Reset(ctx); !errors.Is(err, progress.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before init, got %v", err)
	}

	doc, err := store.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if doc.Trauma != 0 || doc.Upper != 0 || doc.Lower != 0 {
		t.Fatalf("expected zero counters, got %+v", doc)
	}
	if doc.CreatedAt == nil || !doc.CreatedAt.Equal(created) {
		t.Fatalf("expected createdAt %v, got %v", created, doc.CreatedAt)
	}

	doc, err = store.Increment(ctx, progress.CategoryTrauma, 5)
	if err != nil || doc.Trauma != 5 {
		t.Fatalf("Increment() unexpected result: doc=%+v err=%v", doc, err)
	}

	doc.CreatedAt = nil
	again, err := store.GetOrCreate(ctx)
	if err != nil || again.CreatedAt == nil || again.Trauma != 5 {
		t.Fatalf("expected stored copy to be unaffected, got %+v err=%v", again, err)
	}

	doc, err = store.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if doc.Trauma != 0 || doc.UpdatedAt == nil {
		t.Fatalf("expected reset document with updatedAt, got %+v", doc)
	}
}

func TestStoreConcurrentIncrements(t *testing.T) {
	t.Parallel()

	store := NewStore(fixedClock{now: time.Now().UTC()})
	ctx := context.Background()
	if _, err := store.GetOrCreate(ctx); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Increment(ctx, progress.CategoryUpper, 1); err != nil {
				t.Errorf("Increment() error = %v", err)
			}
		}()
	}
	wg.Wait()

	doc, err := store.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if doc.Upper != workers {
		t.Fatalf("expected upper=%d, got %v", workers, doc.Upper)
	}
}
