package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithTimeout(t *testing.T) {
	t.Parallel()

	t.Run("operation finishes first", func(t *testing.T) {
		t.Parallel()

		item, err := RunWithTimeout(context.Background(), time.Second, "too slow",
			func(ctx context.Context) (WorkItem, error) {
				return WorkItem{ID: "a", Status: ItemStatusCompleted}, nil
			})

		require.NoError(t, err)
		assert.Equal(t, "a", item.ID)
	})

	t.Run("operation error is returned unchanged", func(t *testing.T) {
		t.Parallel()

		opErr := errors.New("ocr failed")
		_, err := RunWithTimeout(context.Background(), time.Second, "too slow",
			func(ctx context.Context) (WorkItem, error) {
				return WorkItem{}, opErr
			})

		assert.ErrorIs(t, err, opErr)
		assert.False(t, IsTimeout(err))
	})

	t.Run("timer fires first", func(t *testing.T) {
		t.Parallel()

		abandoned := make(chan struct{})
		start := time.Now()
		_, err := RunWithTimeout(context.Background(), 20*time.Millisecond, "extraction timed out",
			func(ctx context.Context) (WorkItem, error) {
				<-ctx.Done()
				close(abandoned)
				return WorkItem{}, ctx.Err()
			})

		require.Error(t, err)
		assert.True(t, IsTimeout(err))
		assert.False(t, IsCancellation(err))
		assert.Contains(t, err.Error(), "extraction timed out")
		assert.Less(t, time.Since(start), time.Second)

		var timeoutErr *TimeoutError
		require.True(t, errors.As(err, &timeoutErr))
		assert.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)

		select {
		case <-abandoned:
		case <-time.After(500 * time.Millisecond):
			t.Fatal("operation context was not cancelled after timeout")
		}
	})

	t.Run("parent cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{})
		go func() {
			<-started
			cancel()
		}()

		_, err := RunWithTimeout(ctx, time.Minute, "too slow",
			func(opCtx context.Context) (WorkItem, error) {
				close(started)
				<-opCtx.Done()
				return WorkItem{}, opCtx.Err()
			})

		assert.True(t, IsCancellation(err))
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsTimeout(err))
	})

	t.Run("already cancelled context never runs the operation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls atomic.Int32
		_, err := RunWithTimeout(ctx, time.Second, "too slow",
			func(ctx context.Context) (WorkItem, error) {
				calls.Add(1)
				return WorkItem{}, nil
			})

		assert.True(t, IsCancellation(err))
		assert.Zero(t, calls.Load())
	})

	t.Run("zero timeout disables the timer", func(t *testing.T) {
		t.Parallel()

		_, err := RunWithTimeout(context.Background(), 0, "too slow",
			func(ctx context.Context) (WorkItem, error) {
				time.Sleep(10 * time.Millisecond)
				return WorkItem{ID: "b"}, nil
			})

		assert.NoError(t, err)
	})

	t.Run("panic is returned as a permanent error", func(t *testing.T) {
		t.Parallel()

		_, err := RunWithTimeout(context.Background(), time.Second, "too slow",
			func(ctx context.Context) (WorkItem, error) {
				panic("decoder crashed")
			})

		var panicErr *PanicError
		require.True(t, errors.As(err, &panicErr))
		assert.Equal(t, "decoder crashed", panicErr.Value)
		assert.NotEmpty(t, panicErr.Stack)
		assert.ErrorIs(t, err, ErrPermanent)
	})
}
