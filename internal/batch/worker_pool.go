package batch

import (
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// chunkPool runs the items of one chunk on a bounded number of goroutines.
// Work functions never return errors, so one failure never stops siblings.
type chunkPool struct {
	group       errgroup.Group
	workerCount int
}

func newChunkPool(workerCount int, logger *slog.Logger) *chunkPool {
	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	p := &chunkPool{workerCount: workerCount}
	p.group.SetLimit(workerCount)
	return p
}

// Go schedules fn, blocking while all workers are busy.
func (p *chunkPool) Go(fn func()) {
	p.group.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every scheduled function has returned.
func (p *chunkPool) Wait() {
	_ = p.group.Wait()
}
