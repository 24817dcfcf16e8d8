package batch

import (
	"errors"
	"fmt"
	"time"
)

// Common batch errors.
var (
	// ErrCancelled is returned when work is abandoned because the run was
	// cancelled. Items interrupted this way return to the pending queue.
	ErrCancelled = errors.New("batch: cancelled")

	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("batch: operation timed out")

	// ErrPermanent marks a processing failure that must not be retried.
	// Wrap it from a ProcessFunc to fail an item immediately.
	ErrPermanent = errors.New("batch: permanent failure")

	// ErrInvalidConfig is returned by NewScheduler for malformed configuration.
	ErrInvalidConfig = errors.New("batch: invalid configuration")

	// ErrNilProcessFunc is returned by Run when no process function is given.
	ErrNilProcessFunc = errors.New("batch: process function is nil")

	// ErrAlreadyRunning is returned by Run while a run is in progress.
	ErrAlreadyRunning = errors.New("batch: scheduler is already running")

	// ErrInvalidTransition is returned when a control operation is not valid
	// for the current RunStatus.
	ErrInvalidTransition = errors.New("batch: invalid status transition")

	// ErrDuplicateItem is returned when two work items share an id.
	ErrDuplicateItem = errors.New("batch: duplicate item id")

	// ErrStateNotFound is returned by a StateStore when no snapshot exists
	// under the requested key.
	ErrStateNotFound = errors.New("batch: processing state not found")

	// ErrInvalidState is returned when a ProcessingState fails validation.
	ErrInvalidState = errors.New("batch: invalid processing state")
)

// TimeoutError reports that an operation exceeded its deadline.
type TimeoutError struct {
	Message string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("operation timed out after %s", e.Timeout)
	}
	return fmt.Sprintf("%s (after %s)", e.Message, e.Timeout)
}

// Is makes errors.Is(err, ErrTimeout) true for any *TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// PanicError reports a panic recovered from a ProcessFunc. It is permanent.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns ErrPermanent so panicking items are not retried.
func (e *PanicError) Unwrap() error {
	return ErrPermanent
}

// IsCancellation reports whether err represents cancellation rather than a
// processing failure.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
