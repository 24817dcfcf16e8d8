package batch

import (
	"fmt"
	"time"
)

// DefaultStaleAfter is how old a snapshot may be before a loader discards it.
const DefaultStaleAfter = 24 * time.Hour

// StateKeyPrefix namespaces persisted snapshots.
const StateKeyPrefix = "vehicle-doc-processing-"

// StateKey returns the storage key for a batch.
func StateKey(batchID string) string {
	return StateKeyPrefix + batchID
}

// ProcessingState is a durable snapshot of a run. It is produced by the
// Scheduler and should be persisted and handed back verbatim.
type ProcessingState struct {
	CompletedIDs []string  `json:"completed_ids"`
	FailedIDs    []string  `json:"failed_ids"`
	SkippedIDs   []string  `json:"skipped_ids"`
	CurrentIndex int       `json:"current_index"`
	TotalItems   int       `json:"total_items"`
	Timestamp    time.Time `json:"timestamp"`
}

// IsStale reports whether the snapshot is older than maxAge at now.
func (s ProcessingState) IsStale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(s.Timestamp) > maxAge
}

// SettledCount returns the number of ids in any terminal list.
func (s ProcessingState) SettledCount() int {
	return len(s.CompletedIDs) + len(s.FailedIDs) + len(s.SkippedIDs)
}

// Validate checks the snapshot for internal consistency.
func (s ProcessingState) Validate() error {
	if s.TotalItems < 0 {
		return fmt.Errorf("%w: total items cannot be negative", ErrInvalidState)
	}
	if s.CurrentIndex < 0 || s.CurrentIndex > s.TotalItems {
		return fmt.Errorf("%w: current index %d out of range [0, %d]",
			ErrInvalidState, s.CurrentIndex, s.TotalItems)
	}

	seen := make(map[string]string, s.SettledCount())
	lists := []struct {
		name string
		ids  []string
	}{
		{"completed", s.CompletedIDs},
		{"failed", s.FailedIDs},
		{"skipped", s.SkippedIDs},
	}
	for _, l := range lists {
		for _, id := range l.ids {
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("%w: id %q listed as both %s and %s",
					ErrInvalidState, id, prev, l.name)
			}
			seen[id] = l.name
		}
	}
	return nil
}
