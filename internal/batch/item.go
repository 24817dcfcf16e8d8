package batch

import (
	"context"
	"time"
)

// ItemStatus represents where a work item currently sits in the queue.
type ItemStatus string

// Possible item status values
const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusInFlight  ItemStatus = "in_flight"
	ItemStatusCompleted ItemStatus = "completed"
	ItemStatusFailed    ItemStatus = "failed"
	ItemStatusSkipped   ItemStatus = "skipped"
)

// IsTerminal reports whether the status is a settled one.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusCompleted || s == ItemStatusFailed || s == ItemStatusSkipped
}

// WorkItem is a single unit of work tracked by a Scheduler.
type WorkItem struct {
	// ID is assigned by the caller before enqueue and never changes.
	ID string `json:"id"`

	// Payload is opaque caller data, never inspected by the queue.
	Payload any `json:"payload,omitempty"`

	Status     ItemStatus `json:"status"`
	RetryCount int        `json:"retry_count"`
	LastError  string     `json:"last_error,omitempty"`

	// ProcessingDuration is set once the item reaches a terminal state.
	ProcessingDuration time.Duration `json:"-"`
}

// ProcessingDurationMs returns the processing duration in milliseconds.
func (i WorkItem) ProcessingDurationMs() int64 {
	return i.ProcessingDuration.Milliseconds()
}

// NewWorkItem creates a pending work item.
func NewWorkItem(id string, payload any) WorkItem {
	return WorkItem{
		ID:      id,
		Payload: payload,
		Status:  ItemStatusPending,
	}
}

// ProcessFunc performs the work for a single item. It must honor ctx, which
// is cancelled on timeout or when the run is cancelled, and it should return
// an updated copy of the item rather than mutating shared data.
type ProcessFunc func(ctx context.Context, item WorkItem) (WorkItem, error)
