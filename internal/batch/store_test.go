package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStateStore()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrStateNotFound)

	state := ProcessingState{
		CompletedIDs: []string{"a", "b"},
		FailedIDs:    []string{"c"},
		SkippedIDs:   []string{},
		CurrentIndex: 3,
		TotalItems:   5,
		Timestamp:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, "k", state))
	assert.Equal(t, 1, store.Len())

	loaded, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, state, *loaded)

	// The store keeps its own copy.
	loaded.CompletedIDs[0] = "changed"
	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "a", again.CompletedIDs[0])

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"), "deleting a missing key is not an error")
	assert.Zero(t, store.Len())
}

func TestLoadResumeState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	t.Run("missing snapshot", func(t *testing.T) {
		res, err := LoadResumeState(ctx, NewMemoryStateStore(), "k", DefaultStaleAfter, now)
		require.NoError(t, err)
		assert.Nil(t, res.State)
		assert.False(t, res.Stale)
	})

	t.Run("fresh snapshot", func(t *testing.T) {
		store := NewMemoryStateStore()
		require.NoError(t, store.Save(ctx, "k", ProcessingState{
			CompletedIDs: []string{"a"},
			TotalItems:   2,
			Timestamp:    now.Add(-time.Hour),
		}))

		res, err := LoadResumeState(ctx, store, "k", DefaultStaleAfter, now)
		require.NoError(t, err)
		require.NotNil(t, res.State)
		assert.Equal(t, []string{"a"}, res.State.CompletedIDs)
	})

	t.Run("stale snapshot is deleted", func(t *testing.T) {
		store := NewMemoryStateStore()
		require.NoError(t, store.Save(ctx, "k", ProcessingState{
			CompletedIDs: []string{"a"},
			TotalItems:   2,
			Timestamp:    now.Add(-25 * time.Hour),
		}))

		res, err := LoadResumeState(ctx, store, "k", DefaultStaleAfter, now)
		require.NoError(t, err)
		assert.Nil(t, res.State)
		assert.True(t, res.Stale)
		assert.Zero(t, store.Len())
	})

	t.Run("invalid snapshot", func(t *testing.T) {
		store := NewMemoryStateStore()
		require.NoError(t, store.Save(ctx, "k", ProcessingState{
			CompletedIDs: []string{"a"},
			FailedIDs:    []string{"a"},
			TotalItems:   1,
			Timestamp:    now,
		}))

		_, err := LoadResumeState(ctx, store, "k", DefaultStaleAfter, now)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("store error", func(t *testing.T) {
		_, err := LoadResumeState(ctx, failingStore{}, "k", DefaultStaleAfter, now)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load processing state")
	})
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, ProcessingState) error {
	return errors.New("disk full")
}

func (failingStore) Load(context.Context, string) (*ProcessingState, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestPersister(t *testing.T) {
	t.Parallel()

	store := NewMemoryStateStore()
	p := NewPersister(store, StateKey("batch-1"), setupTestLogger())

	p.Save(ProcessingState{CompletedIDs: []string{"x"}, TotalItems: 1, CurrentIndex: 1})
	loaded, err := store.Load(context.Background(), StateKey("batch-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, loaded.CompletedIDs)

	require.NoError(t, p.Clear(context.Background()))
	assert.Zero(t, store.Len())

	// Save failures are logged, not propagated.
	broken := NewPersister(failingStore{}, "k", setupTestLogger())
	assert.NotPanics(t, func() { broken.Save(ProcessingState{}) })
	assert.Error(t, broken.Clear(context.Background()))
}
