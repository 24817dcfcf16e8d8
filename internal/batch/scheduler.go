package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// RunStatus represents the lifecycle state of a Scheduler.
type RunStatus string

// Possible run status values
const (
	RunStatusIdle       RunStatus = "idle"
	RunStatusProcessing RunStatus = "processing"
	RunStatusPaused     RunStatus = "paused"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusCancelled  RunStatus = "cancelled"
)

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used by the scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the clock used for durations and sleeps.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(sink MetricsSink) Option {
	return func(s *Scheduler) {
		if sink != nil {
			s.metrics = sink
		}
	}
}

// Scheduler drives a chunked, resumable run over a fixed list of work items.
//
// Only the goroutine executing Run mutates the ledger in response to item
// outcomes. Workers report back over a channel. The mutex lets control and
// query methods be called safely from other goroutines.
type Scheduler struct {
	mu     sync.Mutex
	ledger *ledger
	status RunStatus

	// cancel aborts the active run, nil when no run is active
	cancel context.CancelFunc

	// wake is signalled on Resume and Cancel to unblock a paused run
	wake chan struct{}

	cfg     Config
	hooks   Hooks
	logger  *slog.Logger
	clock   Clock
	metrics MetricsSink
}

// NewScheduler creates a scheduler for items, optionally resuming from a prior
// snapshot. Items whose ids appear in resume are treated as already settled.
// Invalid configuration and duplicate ids are rejected here, before any work
// is dispatched.
func NewScheduler(
	items []WorkItem,
	resume *ProcessingState,
	cfg Config,
	hooks Hooks,
	opts ...Option,
) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if resume != nil {
		if err := resume.Validate(); err != nil {
			return nil, fmt.Errorf("invalid resume state: %w", err)
		}
	}

	l, err := newLedger(items, resume)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		ledger:  l,
		status:  RunStatusIdle,
		wake:    make(chan struct{}, 1),
		cfg:     cfg,
		hooks:   hooks,
		logger:  slog.Default(),
		clock:   RealClock(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "batch_scheduler")

	stats := l.stats()
	s.logger.Info("scheduler initialized",
		"config", cfg,
		"total", stats.Total,
		"pending", stats.Pending,
		"completed", stats.Completed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"resumed", resume != nil)

	return s, nil
}

// Run processes pending items until the queue drains or the run is
// cancelled, and blocks until then. While paused it waits for Resume or
// Cancel. Cancelling ctx is equivalent to calling Cancel.
//
// Run may be called again after a completed run, for example after
// RetryFailed. The returned error matches ErrCancelled when the run ended by
// cancellation. Cancelled is sticky: a Cancel that lands after the last chunk
// settles but before Run returns still ends the run as cancelled, and the
// summary then reads "cancelled with 0 pending".
func (s *Scheduler) Run(ctx context.Context, process ProcessFunc) (Summary, error) {
	if process == nil {
		return s.Summary(), ErrNilProcessFunc
	}

	s.mu.Lock()
	switch s.status {
	case RunStatusProcessing, RunStatusPaused:
		summary := s.summaryLocked()
		s.mu.Unlock()
		s.logger.Warn("run requested while already running", "status", summary.Status)
		return summary, ErrAlreadyRunning
	case RunStatusCancelled:
		summary := s.summaryLocked()
		s.mu.Unlock()
		return summary, ErrCancelled
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.status = RunStatusProcessing
	s.mu.Unlock()
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		if err := s.Cancel(); err == nil {
			s.logger.Info("run cancelled by parent context")
		}
	})
	defer stop()

	start := s.clock.Now()
	s.logger.Info("batch run started", "pending", s.Stats().Pending)

	chunks := s.loop(runCtx, process)

	// Final snapshot regardless of how the loop ended.
	s.saveState()

	s.mu.Lock()
	switch {
	case runCtx.Err() != nil:
		// The parent context may be done before its AfterFunc has run.
		s.status = RunStatusCancelled
	case s.status != RunStatusCancelled:
		s.status = RunStatusCompleted
	}
	s.cancel = nil
	summary := s.summaryLocked()
	s.mu.Unlock()

	s.logger.Info("batch run finished",
		"outcome", summary.String(),
		"chunks", chunks,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"pending", summary.Pending,
		"duration", s.clock.Now().Sub(start))

	if summary.Status == RunStatusCancelled {
		return summary, ErrCancelled
	}
	return summary, nil
}

// loop dispatches chunks until the queue drains or the run stops. It returns
// the number of chunks dispatched.
func (s *Scheduler) loop(ctx context.Context, process ProcessFunc) int {
	chunkIndex := 0
	sinceSave := 0

	for {
		if !s.awaitProcessing(ctx) {
			return chunkIndex
		}

		s.mu.Lock()
		chunk := s.ledger.popChunk(s.cfg.ChunkSize)
		stats := s.ledger.stats()
		s.mu.Unlock()

		if len(chunk) == 0 {
			return chunkIndex
		}
		s.metrics.QueueDepth(stats.Pending, stats.InFlight)

		s.logger.Debug("dispatching chunk",
			"chunk_index", chunkIndex,
			"size", len(chunk),
			"pending", stats.Pending)

		res := s.runChunk(ctx, chunkIndex, chunk, process)

		s.metrics.ChunkCompleted(len(chunk), res.succeeded)
		s.callHook("on_chunk_complete", func() {
			if s.hooks.OnChunkComplete != nil {
				s.hooks.OnChunkComplete(chunkIndex, res.succeeded, len(chunk))
			}
		})

		s.mu.Lock()
		stats = s.ledger.stats()
		s.mu.Unlock()
		s.metrics.QueueDepth(stats.Pending, stats.InFlight)

		if res.settled > 0 {
			s.callHook("on_progress", func() {
				if s.hooks.OnProgress != nil {
					s.hooks.OnProgress(stats.Completed, stats.Total, res.last)
				}
			})
		}

		sinceSave += res.settled
		if sinceSave >= s.cfg.ProgressSaveInterval {
			s.saveState()
			sinceSave = 0
		}

		chunkIndex++

		if stats.Pending > 0 && s.cfg.InterChunkDelay > 0 {
			select {
			case <-s.clock.After(s.cfg.InterChunkDelay):
			case <-ctx.Done():
				return chunkIndex
			}
		}
	}
}

// awaitProcessing blocks while the run is paused. It reports whether the
// loop should dispatch another chunk.
func (s *Scheduler) awaitProcessing(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}

		s.mu.Lock()
		status := s.status
		s.mu.Unlock()

		switch status {
		case RunStatusProcessing:
			return true
		case RunStatusPaused:
			select {
			case <-s.wake:
			case <-ctx.Done():
				return false
			}
		default:
			return false
		}
	}
}

type outcomeKind int

const (
	outcomeCompleted outcomeKind = iota
	outcomeFailed
	outcomeCancelled
)

type itemOutcome struct {
	kind outcomeKind
	item WorkItem
	err  error
}

type chunkResult struct {
	succeeded int
	settled   int
	last      WorkItem
}

// runChunk fans the chunk out on a bounded pool and records each outcome as
// it arrives. It returns once every item of the chunk has settled.
func (s *Scheduler) runChunk(
	ctx context.Context,
	chunkIndex int,
	chunk []WorkItem,
	process ProcessFunc,
) chunkResult {
	outcomes := make(chan itemOutcome, len(chunk))
	pool := newChunkPool(min(s.cfg.MaxConcurrency, len(chunk)), s.logger)

	go func() {
		for _, item := range chunk {
			pool.Go(func() {
				outcomes <- s.execute(ctx, chunkIndex, item, process)
			})
		}
		pool.Wait()
		close(outcomes)
	}()

	var res chunkResult
	for out := range outcomes {
		switch out.kind {
		case outcomeCompleted:
			s.mu.Lock()
			item := s.ledger.complete(out.item)
			s.mu.Unlock()

			res.succeeded++
			res.settled++
			res.last = item
			s.metrics.ItemSettled(ItemStatusCompleted, item.ProcessingDuration)
			s.callHook("on_item_complete", func() {
				if s.hooks.OnItemComplete != nil {
					s.hooks.OnItemComplete(item)
				}
			})

		case outcomeFailed:
			s.mu.Lock()
			item := s.ledger.fail(out.item)
			s.mu.Unlock()

			res.settled++
			res.last = item
			s.metrics.ItemSettled(ItemStatusFailed, item.ProcessingDuration)
			s.logger.Warn("item failed",
				"item_id", item.ID,
				"chunk_index", chunkIndex,
				"retry_count", item.RetryCount,
				"error", item.LastError)
			s.callHook("on_item_error", func() {
				if s.hooks.OnItemError != nil {
					s.hooks.OnItemError(item, out.err)
				}
			})

		case outcomeCancelled:
			s.mu.Lock()
			s.ledger.requeue(out.item)
			s.mu.Unlock()
			s.logger.Debug("item returned to pending after cancellation",
				"item_id", out.item.ID,
				"chunk_index", chunkIndex)
		}
	}

	return res
}

// execute runs one item through the retry policy and the per-attempt
// timeout.
func (s *Scheduler) execute(
	ctx context.Context,
	chunkIndex int,
	dispatched WorkItem,
	process ProcessFunc,
) itemOutcome {
	logger := s.logger.With("item_id", dispatched.ID, "chunk_index", chunkIndex)
	start := s.clock.Now()

	cancelled := itemOutcome{kind: outcomeCancelled, item: dispatched}
	failed := func(retries int, err error) itemOutcome {
		item := dispatched
		item.RetryCount = retries
		item.LastError = err.Error()
		item.ProcessingDuration = s.clock.Now().Sub(start)
		return itemOutcome{kind: outcomeFailed, item: item, err: err}
	}

	timeoutMessage := fmt.Sprintf("processing timed out for item %s", dispatched.ID)

	var lastErr error
	lastAttempt := 0
	for attempt := 0; attempt <= s.cfg.Retry.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return cancelled
		}

		input := dispatched
		input.RetryCount = attempt
		result, err := RunWithTimeout(ctx, s.cfg.ItemTimeout, timeoutMessage,
			func(opCtx context.Context) (WorkItem, error) {
				return process(opCtx, input)
			})
		if err == nil {
			result.ID = dispatched.ID
			result.RetryCount = attempt
			result.ProcessingDuration = s.clock.Now().Sub(start)
			return itemOutcome{kind: outcomeCompleted, item: result}
		}

		// Cancellation never consumes a retry slot.
		if errors.Is(err, ErrCancelled) || ctx.Err() != nil {
			return cancelled
		}

		lastErr = err
		lastAttempt = attempt

		var panicErr *PanicError
		if errors.As(err, &panicErr) {
			logger.Error("panic while processing item",
				"panic", panicErr.Value,
				"stack", string(panicErr.Stack))
		}
		logger.Debug("item attempt failed",
			"attempt", attempt,
			"timed_out", IsTimeout(err),
			"error", err)

		if errors.Is(err, ErrPermanent) || !s.cfg.Retry.ShouldRetry(attempt) {
			break
		}

		s.metrics.ItemRetried(attempt+1, IsTimeout(err))
		if delay := s.cfg.Retry.Delay(attempt); delay > 0 {
			select {
			case <-s.clock.After(delay):
			case <-ctx.Done():
				return cancelled
			}
		}
	}

	return failed(lastAttempt, lastErr)
}

// saveState hands a fresh snapshot to the OnSaveState hook.
func (s *Scheduler) saveState() {
	if s.hooks.OnSaveState == nil {
		return
	}
	s.mu.Lock()
	state := s.ledger.snapshot(s.clock.Now().UTC())
	s.mu.Unlock()

	s.callHook("on_save_state", func() {
		s.hooks.OnSaveState(state)
	})
}

// callHook invokes fn and logs instead of crashing the run if it panics.
func (s *Scheduler) callHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("hook panicked",
				"hook", name,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Pause stops dispatch of further chunks. Items already dispatched run to
// completion. Only valid while processing.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != RunStatusProcessing {
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidTransition, s.status)
	}
	s.status = RunStatusPaused
	s.logger.Info("batch run paused")
	return nil
}

// Resume continues a paused run.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != RunStatusPaused {
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, s.status)
	}
	s.status = RunStatusProcessing
	s.signalWake()
	s.logger.Info("batch run resumed")
	return nil
}

// Cancel stops the run and signals in-flight items to abort. Interrupted
// items return to pending. Cancelled is terminal. Calling Cancel again is a
// no-op that returns nil; cancelling a completed run returns
// ErrInvalidTransition.
func (s *Scheduler) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case RunStatusCancelled:
		return nil
	case RunStatusCompleted:
		return fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, s.status)
	}

	s.status = RunStatusCancelled
	if s.cancel != nil {
		s.cancel()
	}
	s.signalWake()
	s.logger.Info("batch run cancelled")
	return nil
}

func (s *Scheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// SkipItem moves a pending item to the skipped set. It reports false when the
// item is unknown, in flight or already settled.
func (s *Scheduler) SkipItem(id string) bool {
	s.mu.Lock()
	skipped := s.ledger.skip(id)
	s.mu.Unlock()

	if skipped {
		s.logger.Info("item skipped", "item_id", id)
	}
	return skipped
}

// RetryFailed moves every failed item back to pending with its retry state
// cleared. It does not start processing.
func (s *Scheduler) RetryFailed() int {
	s.mu.Lock()
	n := s.ledger.retryFailed()
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info("failed items re-queued", "count", n)
	}
	return n
}

// Status returns the current run status.
func (s *Scheduler) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stats returns aggregate counts for the run.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.stats()
}

// Item returns the current copy of the item with the given id.
func (s *Scheduler) Item(id string) (WorkItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.item(id)
}

// CompletedItems returns completed items in the order they settled.
func (s *Scheduler) CompletedItems() []WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.collect(s.ledger.completed)
}

// FailedItems returns failed items in the order they settled.
func (s *Scheduler) FailedItems() []WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.collect(s.ledger.failed)
}

// SkippedItems returns skipped items in the order they were skipped.
func (s *Scheduler) SkippedItems() []WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.collect(s.ledger.skipped)
}

// Snapshot returns the current ProcessingState without firing any hook.
func (s *Scheduler) Snapshot() ProcessingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.snapshot(s.clock.Now().UTC())
}
