package firestore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	gfirestore "cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// newEmulatorStore returns a store bound to a fresh collection on the
// Firestore emulator, or skips when no emulator is configured.
func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping Firestore emulator test")
	}
	ctx := context.Background()
	client, err := gfirestore.NewClient(ctx, "progress-emulator")
	require.NoError(t, err)
	store, err := NewWithClient(client, fmt.Sprintf("progress_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestEmulatorLifecycle(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()

	_, err := store.Increment(ctx, progress.CategoryTrauma, 1)
	require.ErrorIs(t, err, progress.ErrNotFound)
	_, err = store.Reset(ctx)
	require.ErrorIs(t, err, progress.ErrNotFound)

	doc, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	require.Equal(t, 0.0, doc.Trauma+doc.Upper+doc.Lower)
	require.NotNil(t, doc.CreatedAt)

	doc, err = store.Increment(ctx, progress.CategoryTrauma, 5)
	require.NoError(t, err)
	require.Equal(t, 5.0, doc.Trauma)

	doc, err = store.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, 0.0, doc.Trauma)
	require.NotNil(t, doc.UpdatedAt)
	require.NoError(t, store.Ping(ctx))
}

func TestEmulatorConcurrentIncrements(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, incErr := store.Increment(ctx, progress.CategoryUpper, 1); incErr != nil {
				t.Errorf("Increment() error = %v", incErr)
			}
		}()
	}
	wg.Wait()

	doc, err := store.GetOrCreate(ctx)
	require.NoError(t, err)
	require.Equal(t, 2.0, doc.Upper)
}
