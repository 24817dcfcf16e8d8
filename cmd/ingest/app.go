package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/config"
	"github.com/phrazzld/scry-ingest/internal/extraction"
	"github.com/phrazzld/scry-ingest/internal/ingest"
	badgerstore "github.com/phrazzld/scry-ingest/internal/platform/badger"
	"github.com/phrazzld/scry-ingest/internal/platform/gemini"
	"github.com/phrazzld/scry-ingest/internal/platform/metrics"
	"github.com/phrazzld/scry-ingest/internal/platform/postgres"
)

// application holds the wired dependencies of one ingest run.
type application struct {
	cfg       *config.Config
	opts      options
	logger    *slog.Logger
	store     batch.StateStore
	extractor extraction.Extractor
	metrics   *metrics.Sink
	now       func() time.Time
	closers   []func() error
}

// newApplication opens the state store and creates the extractor.
func newApplication(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) (*application, error) {
	app := &application{
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		metrics: metrics.NewSink(),
		now:     func() time.Time { return time.Now().UTC() },
	}

	store, closeStore, err := openStateStore(ctx, cfg.Store, cfg.Batch.StaleAfter(), logger)
	if err != nil {
		return nil, err
	}
	app.store = store
	app.closers = append(app.closers, closeStore)

	extractor, err := gemini.NewExtractor(ctx, logger, cfg.LLM)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	app.extractor = extractor

	return app, nil
}

// openStateStore builds the configured batch.StateStore.
func openStateStore(
	ctx context.Context,
	cfg config.StoreConfig,
	staleAfter time.Duration,
	logger *slog.Logger,
) (batch.StateStore, func() error, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory state store, progress will not survive a restart")
		return batch.NewMemoryStateStore(), func() error { return nil }, nil

	case "badger":
		// Entries outlive the staleness window so the loader, not the TTL,
		// decides what is stale.
		s, err := badgerstore.Open(cfg.BadgerDir, 2*staleAfter)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open badger state store: %w", err)
		}
		logger.Info("using badger state store", "dir", cfg.BadgerDir)
		if keys, err := s.Keys(batch.StateKeyPrefix); err != nil {
			logger.Warn("failed to list saved runs", "error", err)
		} else if len(keys) > 0 {
			logger.Info("found saved runs", "count", len(keys), "keys", keys)
		}
		return s, s.Close, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("using postgres state store")
		return postgres.NewStateStore(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown state store driver %q", cfg.Driver)
	}
}

// Run processes the directory and returns the run summary.
func (app *application) Run(ctx context.Context) (batch.Summary, error) {
	key := batch.StateKey(app.opts.batchID)
	log := app.logger.With("batch_id", app.opts.batchID)
	persister := batch.NewPersister(app.store, key, app.logger)

	if app.opts.reset {
		if err := persister.Clear(ctx); err != nil {
			return batch.Summary{}, err
		}
	}

	resume, err := batch.LoadResumeState(ctx, app.store, key, app.cfg.Batch.StaleAfter(), app.now())
	if err != nil {
		return batch.Summary{}, err
	}
	if resume.Stale {
		log.Warn("saved progress is too old and was discarded, processing all documents",
			"stale_after", app.cfg.Batch.StaleAfter())
	}

	items, err := ingest.NewScanner(app.opts.dir, app.cfg.Batch.MaxFileSizeBytes, log).Scan()
	if err != nil {
		return batch.Summary{}, err
	}
	if resume.State != nil && resume.State.TotalItems != len(items) {
		log.Warn("document set changed since the saved run",
			"saved_total", resume.State.TotalItems,
			"found", len(items))
	}

	hooks := batch.Hooks{
		OnProgress: func(completed, total int, last batch.WorkItem) {
			log.Info("progress", "completed", completed, "total", total)
		},
		OnItemError: func(item batch.WorkItem, err error) {
			log.Debug("document failed", "item_id", item.ID, "retries", item.RetryCount)
		},
		OnSaveState: persister.Save,
	}

	sched, err := batch.NewScheduler(items, resume.State, app.cfg.Batch.SchedulerConfig(), hooks,
		batch.WithLogger(log),
		batch.WithMetrics(app.metrics))
	if err != nil {
		return batch.Summary{}, err
	}

	if app.opts.retryFailed {
		if n := sched.RetryFailed(); n > 0 {
			log.Info("re-queued failed documents from the saved run", "count", n)
		}
	}

	if app.cfg.Server.Enabled {
		stopServer, err := app.startControlServer(sched)
		if err != nil {
			return batch.Summary{}, err
		}
		defer stopServer()
	}

	processor := ingest.NewProcessor(app.extractor, app.cfg.Batch.MaxFileSizeBytes, log)
	summary, runErr := sched.Run(ctx, processor.Process)

	if err := app.finish(sched, persister, summary); err != nil {
		return summary, errors.Join(runErr, err)
	}

	log.Info("batch run finished",
		"outcome", summary.Outcome(),
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"pending", summary.Pending)
	return summary, runErr
}

// finish persists the final snapshot and writes results. A clean run clears
// its saved progress; anything else keeps it for the next invocation.
func (app *application) finish(sched *batch.Scheduler, persister *batch.Persister, summary batch.Summary) error {
	if summary.Outcome() == batch.OutcomeCompleted {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := persister.Clear(ctx); err != nil {
			app.logger.Warn("failed to clear saved progress", "error", err)
		}
	} else {
		persister.Save(sched.Snapshot())
	}

	if app.opts.out == "" {
		return nil
	}
	return writeResultsFile(app.opts.out, sched)
}

// writeResultsFile appends the items settled by this run to path.
func writeResultsFile(path string, sched *batch.Scheduler) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}

	_, err = ingest.WriteResults(f,
		settledThisRun(sched.CompletedItems()),
		settledThisRun(sched.FailedItems()))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// settledThisRun drops items that were restored from a saved run, which
// carry no result or error of their own.
func settledThisRun(items []batch.WorkItem) []batch.WorkItem {
	out := items[:0:0]
	for _, item := range items {
		if _, ok := item.Payload.(ingest.Result); ok || item.LastError != "" {
			out = append(out, item)
		}
	}
	return out
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("cleanup failed", "error", err)
		}
	}
	app.closers = nil
}
