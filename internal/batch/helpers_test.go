package batch

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// setupTestLogger creates a debug-level logger that discards output.
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// recordingClock fires every timer immediately and remembers the requested
// durations.
type recordingClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *recordingClock) Now() time.Time { return time.Now() }

func (c *recordingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (c *recordingClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

// testConfig returns a configuration that runs quickly.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ChunkSize = 10
	cfg.MaxConcurrency = 10
	cfg.InterChunkDelay = 0
	cfg.ItemTimeout = 5 * time.Second
	cfg.Retry = RetryPolicy{MaxRetries: 2, Backoff: []time.Duration{time.Millisecond}}
	return cfg
}

// makeItems creates n pending items with ids item-00, item-01, ...
func makeItems(n int) []WorkItem {
	items := make([]WorkItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, NewWorkItem(fmt.Sprintf("item-%02d", i), i))
	}
	return items
}

func itemIDs(items []WorkItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

// callRecorder counts hook invocations per item id.
type callRecorder struct {
	mu        sync.Mutex
	completed map[string]int
	failed    map[string]int
	errors    map[string]error
	chunks    [][2]int
	progress  []int
	saves     []ProcessingState
}

func newCallRecorder() *callRecorder {
	return &callRecorder{
		completed: make(map[string]int),
		failed:    make(map[string]int),
		errors:    make(map[string]error),
	}
}

func (r *callRecorder) hooks() Hooks {
	return Hooks{
		OnItemComplete: func(item WorkItem) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completed[item.ID]++
		},
		OnItemError: func(item WorkItem, err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.failed[item.ID]++
			r.errors[item.ID] = err
		},
		OnChunkComplete: func(chunkIndex, succeeded, size int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.chunks = append(r.chunks, [2]int{succeeded, size})
		},
		OnProgress: func(completed, total int, last WorkItem) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress = append(r.progress, completed)
		},
		OnSaveState: func(state ProcessingState) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.saves = append(r.saves, state)
		},
	}
}
