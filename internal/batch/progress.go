package batch

import (
	"fmt"
	"math"
)

// Progress reports how far a run has come.
type Progress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Progress returns the completed count, the total and the rounded completion
// percentage. The percentage is 0 for an empty run.
func (s *Scheduler) Progress() Progress {
	stats := s.Stats()
	return progressFor(stats)
}

func progressFor(stats Stats) Progress {
	p := Progress{Completed: stats.Completed, Total: stats.Total}
	if stats.Total > 0 {
		p.Percentage = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return p
}

// EstimatedSecondsRemaining estimates the time left in the run.
//
// This is a heuristic, not a guarantee: it assumes every remaining item takes
// the historical average duration and that future chunks reach the configured
// MaxConcurrency. Retries, backoff and inter-chunk delays are not accounted
// for. It returns 0 unless the run is processing, at least one item has
// completed with a measured duration, and work remains.
func (s *Scheduler) EstimatedSecondsRemaining() int {
	s.mu.Lock()
	status := s.status
	stats := s.ledger.stats()
	s.mu.Unlock()

	if status != RunStatusProcessing {
		return 0
	}
	return estimateSeconds(stats, s.cfg.MaxConcurrency)
}

func estimateSeconds(stats Stats, maxConcurrency int) int {
	remaining := stats.Remaining()
	if remaining == 0 || stats.Completed == 0 || stats.AverageDuration <= 0 {
		return 0
	}
	parallel := max(min(maxConcurrency, remaining), 1)
	avgMs := float64(stats.AverageDuration.Milliseconds())
	return int(math.Round(float64(remaining) / float64(parallel) * avgMs / 1000))
}

// Outcome classifies how a run ended.
type Outcome string

// Possible outcomes
const (
	OutcomeCompleted             Outcome = "completed"
	OutcomeCompletedWithFailures Outcome = "completed_with_failures"
	OutcomeCancelled             Outcome = "cancelled"
	OutcomeIncomplete            Outcome = "incomplete"
)

// Summary is the user-facing result of a run.
type Summary struct {
	Status    RunStatus `json:"status"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Pending   int       `json:"pending"`
}

// Outcome distinguishes a clean run, a run with failures and a cancelled run
// so a partially processed batch is never reported as finished.
func (s Summary) Outcome() Outcome {
	switch s.Status {
	case RunStatusCancelled:
		return OutcomeCancelled
	case RunStatusCompleted:
		if s.Failed > 0 {
			return OutcomeCompletedWithFailures
		}
		return OutcomeCompleted
	default:
		return OutcomeIncomplete
	}
}

// String returns a short human readable description.
func (s Summary) String() string {
	switch s.Outcome() {
	case OutcomeCompleted:
		return fmt.Sprintf("completed %d of %d items", s.Completed, s.Total)
	case OutcomeCompletedWithFailures:
		return fmt.Sprintf("completed with %d failures", s.Failed)
	case OutcomeCancelled:
		return fmt.Sprintf("cancelled with %d pending", s.Pending)
	default:
		return fmt.Sprintf("%s with %d pending", s.Status, s.Pending)
	}
}

// Summary returns the current summary of the run.
func (s *Scheduler) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Scheduler) summaryLocked() Summary {
	stats := s.ledger.stats()
	return Summary{
		Status:    s.status,
		Total:     stats.Total,
		Completed: stats.Completed,
		Failed:    stats.Failed,
		Skipped:   stats.Skipped,
		Pending:   stats.Pending + stats.InFlight,
	}
}
