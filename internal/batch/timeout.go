package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

type opResult struct {
	item WorkItem
	err  error
}

// RunWithTimeout races op against a timer and against cancellation of ctx.
//
// If the timer fires first, the context passed to op is cancelled and a
// *TimeoutError carrying message is returned. If ctx is cancelled first the
// returned error matches ErrCancelled. Otherwise the result of op is returned
// as is. A panic in op is returned as a *PanicError. A non-positive timeout
// disables the timer.
func RunWithTimeout(
	ctx context.Context,
	timeout time.Duration,
	message string,
	op func(ctx context.Context) (WorkItem, error),
) (WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return WorkItem{}, cancelledError(err)
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var timerC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	// Buffered so an abandoned op never blocks on send.
	done := make(chan opResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- opResult{err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		item, err := op(opCtx)
		done <- opResult{item: item, err: err}
	}()

	select {
	case res := <-done:
		return res.item, res.err
	case <-timerC:
		return WorkItem{}, &TimeoutError{Message: message, Timeout: timeout}
	case <-ctx.Done():
		return WorkItem{}, cancelledError(ctx.Err())
	}
}

func cancelledError(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
