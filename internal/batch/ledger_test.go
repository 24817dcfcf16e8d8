package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLedger_ResumeIsIdempotent verifies that initializing from a snapshot
// reproduces the same starting partition every time.
func TestLedger_ResumeIsIdempotent(t *testing.T) {
	t.Parallel()

	items := makeItems(20)
	resume := &ProcessingState{
		CompletedIDs: []string{"item-00", "item-01", "item-05"},
		FailedIDs:    []string{"item-02"},
		SkippedIDs:   []string{"item-03", "item-19"},
		CurrentIndex: 4,
		TotalItems:   20,
		Timestamp:    time.Now(),
	}

	for i := 0; i < 2; i++ {
		l, err := newLedger(items, resume)
		require.NoError(t, err)

		stats := l.stats()
		assert.Equal(t, 20, stats.Total)
		assert.Equal(t, 3, stats.Completed)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 2, stats.Skipped)
		assert.Equal(t, 20-6, stats.Pending)
		assert.Zero(t, stats.InFlight)
		assert.Equal(t, "item-04", l.pending[0])
		assert.Equal(t, 4, l.currentIndex())
	}
}

func TestLedger_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("items keep their own terminal status", func(t *testing.T) {
		items := makeItems(4)
		items[1].Status = ItemStatusCompleted
		items[2].Status = ItemStatusInFlight

		l, err := newLedger(items, nil)
		require.NoError(t, err)

		stats := l.stats()
		assert.Equal(t, 1, stats.Completed)
		assert.Equal(t, 3, stats.Pending, "in-flight items from an interrupted run are pending again")
		assert.Equal(t, ItemStatusPending, l.items["item-02"].Status)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		items := append(makeItems(2), NewWorkItem("item-00", nil))
		_, err := newLedger(items, nil)
		assert.ErrorIs(t, err, ErrDuplicateItem)
	})

	t.Run("empty ids are rejected", func(t *testing.T) {
		_, err := newLedger([]WorkItem{{}}, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unknown resume ids are ignored", func(t *testing.T) {
		l, err := newLedger(makeItems(3), &ProcessingState{CompletedIDs: []string{"gone"}})
		require.NoError(t, err)
		assert.Equal(t, 0, l.stats().Completed)
		assert.Equal(t, 3, l.stats().Pending)
	})
}

func TestLedger_Transitions(t *testing.T) {
	t.Parallel()

	l, err := newLedger(makeItems(5), nil)
	require.NoError(t, err)

	chunk := l.popChunk(3)
	require.Len(t, chunk, 3)
	assert.Equal(t, []string{"item-00", "item-01", "item-02"}, itemIDs(chunk))
	assert.Equal(t, 3, l.stats().InFlight)
	assert.Equal(t, 2, l.stats().Pending)

	// In-flight items cannot be skipped.
	assert.False(t, l.skip("item-01"))

	done := chunk[0]
	done.ProcessingDuration = 100 * time.Millisecond
	l.complete(done)

	failed := chunk[1]
	failed.RetryCount = 2
	failed.LastError = "boom"
	l.fail(failed)

	// Cancelled items go back to the front of the queue in original order.
	l.requeue(chunk[2])
	assert.Equal(t, []string{"item-02", "item-03", "item-04"}, l.pending)

	assert.True(t, l.skip("item-03"))
	assert.False(t, l.skip("item-03"))
	assert.False(t, l.skip("missing"))

	stats := l.stats()
	assert.Equal(t, Stats{
		Total:           5,
		Completed:       1,
		Failed:          1,
		Skipped:         1,
		Pending:         2,
		InFlight:        0,
		AverageDuration: 100 * time.Millisecond,
	}, stats)

	assert.Equal(t, 1, l.retryFailed())
	retried := l.items["item-01"]
	assert.Equal(t, ItemStatusPending, retried.Status)
	assert.Zero(t, retried.RetryCount)
	assert.Empty(t, retried.LastError)
	assert.Equal(t, []string{"item-01", "item-02", "item-04"}, l.pending)
	assert.Zero(t, l.stats().Failed)
	assert.Zero(t, l.retryFailed())
}

func TestLedger_Snapshot(t *testing.T) {
	t.Parallel()

	l, err := newLedger(makeItems(4), nil)
	require.NoError(t, err)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	empty := l.snapshot(now)
	assert.NotNil(t, empty.CompletedIDs)
	assert.Zero(t, empty.CurrentIndex)
	assert.Equal(t, 4, empty.TotalItems)
	assert.Equal(t, now, empty.Timestamp)

	chunk := l.popChunk(3)
	// Completion order differs from the original order.
	l.complete(chunk[1])
	l.complete(chunk[0])

	state := l.snapshot(now)
	assert.Equal(t, []string{"item-01", "item-00"}, state.CompletedIDs)
	assert.Equal(t, 2, state.CurrentIndex, "index tracks the original ordering")
	require.NoError(t, state.Validate())

	// Mutating the snapshot must not leak into the ledger.
	state.CompletedIDs[0] = "changed"
	assert.Equal(t, "item-01", l.completed[0])
}

func TestLedger_AverageDuration(t *testing.T) {
	t.Parallel()

	l, err := newLedger(makeItems(3), nil)
	require.NoError(t, err)
	assert.Zero(t, l.stats().AverageDuration)

	chunk := l.popChunk(3)
	chunk[0].ProcessingDuration = 100 * time.Millisecond
	chunk[1].ProcessingDuration = 201 * time.Millisecond
	l.complete(chunk[0])
	l.complete(chunk[1])
	l.fail(chunk[2])

	assert.Equal(t, 151*time.Millisecond, l.stats().AverageDuration)
}

func TestLedger_AverageDurationCountsResumedItems(t *testing.T) {
	t.Parallel()

	resume := &ProcessingState{CompletedIDs: []string{"item-00"}, TotalItems: 3}
	l, err := newLedger(makeItems(3), resume)
	require.NoError(t, err)
	assert.Zero(t, l.stats().AverageDuration, "restored items carry no duration")

	chunk := l.popChunk(1)
	chunk[0].ProcessingDuration = 300 * time.Millisecond
	l.complete(chunk[0])

	stats := l.stats()
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 150*time.Millisecond, stats.AverageDuration)
}
