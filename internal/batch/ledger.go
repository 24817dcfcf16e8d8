package batch

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// Stats summarizes the ledger.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Pending   int `json:"pending"`
	InFlight  int `json:"in_flight"`

	// AverageDuration is the mean processing time over all completed items,
	// rounded to the millisecond. Items without a recorded duration, such as
	// those restored from a snapshot, count as zero.
	AverageDuration time.Duration `json:"-"`
}

// AverageDurationMs returns AverageDuration in milliseconds.
func (s Stats) AverageDurationMs() int64 {
	return s.AverageDuration.Milliseconds()
}

// Remaining returns the number of items not yet settled.
func (s Stats) Remaining() int {
	return s.Pending + s.InFlight
}

// ledger tracks which set every item belongs to. The item's Status is the
// single source of truth for membership; the id slices keep settle order.
// It is not safe for concurrent use.
type ledger struct {
	order []string
	index map[string]int
	items map[string]WorkItem

	// pending is kept sorted by original position.
	pending  []string
	inFlight int

	completed []string
	failed    []string
	skipped   []string

	durationSum time.Duration
}

func newLedger(items []WorkItem, resume *ProcessingState) (*ledger, error) {
	l := &ledger{
		order: make([]string, 0, len(items)),
		index: make(map[string]int, len(items)),
		items: make(map[string]WorkItem, len(items)),
	}

	settled := make(map[string]ItemStatus)
	if resume != nil {
		for _, id := range resume.CompletedIDs {
			settled[id] = ItemStatusCompleted
		}
		for _, id := range resume.FailedIDs {
			settled[id] = ItemStatusFailed
		}
		for _, id := range resume.SkippedIDs {
			settled[id] = ItemStatusSkipped
		}
	}

	for i, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("%w: item at position %d has an empty id", ErrInvalidConfig, i)
		}
		if _, dup := l.index[item.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateItem, item.ID)
		}
		l.index[item.ID] = i
		l.order = append(l.order, item.ID)

		if status, ok := settled[item.ID]; ok {
			item.Status = status
		}

		switch item.Status {
		case ItemStatusCompleted:
			l.completed = append(l.completed, item.ID)
			l.recordDuration(item.ProcessingDuration)
		case ItemStatusFailed:
			l.failed = append(l.failed, item.ID)
		case ItemStatusSkipped:
			l.skipped = append(l.skipped, item.ID)
		default:
			// Items left in flight by an interrupted run are retried from scratch.
			item.Status = ItemStatusPending
			l.pending = append(l.pending, item.ID)
		}
		l.items[item.ID] = item
	}

	return l, nil
}

func (l *ledger) recordDuration(d time.Duration) {
	if d > 0 {
		l.durationSum += d
	}
}

// popChunk moves up to n items from the front of the pending queue into the
// in-flight set.
func (l *ledger) popChunk(n int) []WorkItem {
	n = min(n, len(l.pending))
	chunk := make([]WorkItem, 0, n)
	for _, id := range l.pending[:n] {
		item := l.items[id]
		item.Status = ItemStatusInFlight
		l.items[id] = item
		chunk = append(chunk, item)
	}
	l.pending = slices.Delete(l.pending, 0, n)
	l.inFlight += n
	return chunk
}

func (l *ledger) complete(item WorkItem) WorkItem {
	item.Status = ItemStatusCompleted
	item.LastError = ""
	l.items[item.ID] = item
	l.completed = append(l.completed, item.ID)
	l.inFlight--
	l.recordDuration(item.ProcessingDuration)
	return item
}

func (l *ledger) fail(item WorkItem) WorkItem {
	item.Status = ItemStatusFailed
	l.items[item.ID] = item
	l.failed = append(l.failed, item.ID)
	l.inFlight--
	return item
}

// requeue returns an interrupted in-flight item to the pending queue.
func (l *ledger) requeue(item WorkItem) {
	item.Status = ItemStatusPending
	l.items[item.ID] = item
	l.insertPending(item.ID)
	l.inFlight--
}

func (l *ledger) insertPending(id string) {
	pos := l.index[id]
	at := sort.Search(len(l.pending), func(i int) bool {
		return l.index[l.pending[i]] > pos
	})
	l.pending = slices.Insert(l.pending, at, id)
}

// skip moves a pending item to the skipped set. It reports false when the
// item is unknown or no longer pending.
func (l *ledger) skip(id string) bool {
	item, ok := l.items[id]
	if !ok || item.Status != ItemStatusPending {
		return false
	}
	at := slices.Index(l.pending, id)
	if at < 0 {
		return false
	}
	l.pending = slices.Delete(l.pending, at, at+1)
	item.Status = ItemStatusSkipped
	l.items[id] = item
	l.skipped = append(l.skipped, id)
	return true
}

// retryFailed moves every failed item back to pending with retry state
// cleared and returns how many were moved.
func (l *ledger) retryFailed() int {
	n := len(l.failed)
	for _, id := range l.failed {
		item := l.items[id]
		item.Status = ItemStatusPending
		item.RetryCount = 0
		item.LastError = ""
		item.ProcessingDuration = 0
		l.items[id] = item
		l.insertPending(id)
	}
	l.failed = nil
	return n
}

func (l *ledger) stats() Stats {
	s := Stats{
		Total:     len(l.order),
		Completed: len(l.completed),
		Failed:    len(l.failed),
		Skipped:   len(l.skipped),
		Pending:   len(l.pending),
		InFlight:  l.inFlight,
	}
	if s.Completed > 0 {
		s.AverageDuration = (l.durationSum / time.Duration(s.Completed)).Round(time.Millisecond)
	}
	return s
}

// currentIndex is the length of the longest prefix of the original ordering
// whose items are all settled.
func (l *ledger) currentIndex() int {
	for i, id := range l.order {
		if !l.items[id].Status.IsTerminal() {
			return i
		}
	}
	return len(l.order)
}

func (l *ledger) snapshot(now time.Time) ProcessingState {
	return ProcessingState{
		CompletedIDs: append([]string{}, l.completed...),
		FailedIDs:    append([]string{}, l.failed...),
		SkippedIDs:   append([]string{}, l.skipped...),
		CurrentIndex: l.currentIndex(),
		TotalItems:   len(l.order),
		Timestamp:    now,
	}
}

func (l *ledger) collect(ids []string) []WorkItem {
	out := make([]WorkItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.items[id])
	}
	return out
}

func (l *ledger) item(id string) (WorkItem, bool) {
	item, ok := l.items[id]
	return item, ok
}
