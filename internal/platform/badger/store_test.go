package badger

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(completed ...string) batch.ProcessingState {
	return batch.ProcessingState{
		CompletedIDs: completed,
		FailedIDs:    []string{},
		SkippedIDs:   []string{},
		CurrentIndex: len(completed),
		TotalItems:   10,
		Timestamp:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestStateStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	key := batch.StateKey("fleet")

	_, err = s.Load(ctx, key)
	assert.ErrorIs(t, err, batch.ErrStateNotFound)

	require.NoError(t, s.Save(ctx, key, testState("a")))
	require.NoError(t, s.Save(ctx, key, testState("a", "b")))

	loaded, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, loaded.CompletedIDs)
	assert.Equal(t, 2, loaded.CurrentIndex)
	assert.True(t, loaded.Timestamp.Equal(testState().Timestamp))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting a missing key is a no-op")

	_, err = s.Load(ctx, key)
	assert.ErrorIs(t, err, batch.ErrStateNotFound)
}

func TestStateStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "k", testState("x")))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	loaded, err := reopened.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, loaded.CompletedIDs)
}

func TestStateStore_Keys(t *testing.T) {
	t.Parallel()

	s, err := OpenInMemory(0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	for _, key := range []string{batch.StateKey("b"), batch.StateKey("a"), "other"} {
		require.NoError(t, s.Save(ctx, key, testState()))
	}

	keys, err := s.Keys(batch.StateKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{batch.StateKey("a"), batch.StateKey("b")}, keys)
}

func TestStateStore_WithLoadResumeState(t *testing.T) {
	t.Parallel()

	s, err := OpenInMemory(0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	state := testState("a")
	require.NoError(t, s.Save(ctx, "k", state))

	now := state.Timestamp.Add(25 * time.Hour)
	res, err := batch.LoadResumeState(ctx, s, "k", batch.DefaultStaleAfter, now)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Nil(t, res.State)

	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, batch.ErrStateNotFound, "stale snapshots are deleted on load")
}

func TestStateStore_Closed(t *testing.T) {
	t.Parallel()

	s, err := OpenInMemory(0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Save(context.Background(), "k", testState())
	require.Error(t, err)
	var storeErr *store.StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestStateStore_CancelledContext(t *testing.T) {
	t.Parallel()

	s, err := OpenInMemory(0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, "k", testState()), context.Canceled)
	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
