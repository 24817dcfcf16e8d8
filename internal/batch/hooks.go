package batch

import "time"

// Hooks are optional callbacks fired by a Scheduler. They run on the
// coordinating goroutine, so a slow hook delays the run.
type Hooks struct {
	// OnProgress fires after each chunk with the running completed count.
	OnProgress func(completed, total int, last WorkItem)

	// OnItemComplete fires once per item that completes.
	OnItemComplete func(item WorkItem)

	// OnItemError fires once per item that exhausts its retries. It never
	// fires for cancellation.
	OnItemError func(item WorkItem, err error)

	// OnChunkComplete fires after a chunk settles. chunkIndex is zero based.
	OnChunkComplete func(chunkIndex, succeeded, size int)

	// OnSaveState receives every snapshot the scheduler produces.
	OnSaveState func(state ProcessingState)
}

// MetricsSink receives operational measurements from a Scheduler.
type MetricsSink interface {
	ItemSettled(status ItemStatus, d time.Duration)
	ItemRetried(attempt int, timedOut bool)
	ChunkCompleted(size, succeeded int)
	QueueDepth(pending, inFlight int)
}

type noopMetrics struct{}

func (noopMetrics) ItemSettled(ItemStatus, time.Duration) {}
func (noopMetrics) ItemRetried(int, bool)                 {}
func (noopMetrics) ChunkCompleted(int, int)               {}
func (noopMetrics) QueueDepth(int, int)                   {}
