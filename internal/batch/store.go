package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StateStore persists ProcessingState snapshots under caller-chosen keys.
// Version: 1.0
type StateStore interface {
	// Save stores state under key, replacing any previous snapshot.
	Save(ctx context.Context, key string, state ProcessingState) error

	// Load returns the snapshot stored under key.
	// Returns ErrStateNotFound if no snapshot exists.
	Load(ctx context.Context, key string) (*ProcessingState, error)

	// Delete removes the snapshot stored under key. Deleting a missing key
	// is not an error.
	Delete(ctx context.Context, key string) error
}

// ResumeResult describes what LoadResumeState found.
type ResumeResult struct {
	// State is nil when there is nothing to resume from.
	State *ProcessingState

	// Stale is true when a snapshot existed but was discarded for age.
	Stale bool
}

// LoadResumeState loads the snapshot under key for use as a resume point.
// A missing snapshot yields an empty result. A snapshot older than maxAge is
// deleted and reported as stale so its items are processed fresh.
func LoadResumeState(
	ctx context.Context,
	store StateStore,
	key string,
	maxAge time.Duration,
	now time.Time,
) (ResumeResult, error) {
	state, err := store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return ResumeResult{}, nil
		}
		return ResumeResult{}, fmt.Errorf("failed to load processing state: %w", err)
	}

	if state.IsStale(now, maxAge) {
		if err := store.Delete(ctx, key); err != nil {
			return ResumeResult{}, fmt.Errorf("failed to delete stale processing state: %w", err)
		}
		return ResumeResult{Stale: true}, nil
	}

	if err := state.Validate(); err != nil {
		return ResumeResult{}, err
	}
	return ResumeResult{State: state}, nil
}

// Persister adapts a StateStore into an OnSaveState hook. Save failures are
// logged and do not interrupt the run.
type Persister struct {
	store   StateStore
	key     string
	timeout time.Duration
	logger  *slog.Logger
}

// NewPersister creates a Persister writing to key.
func NewPersister(store StateStore, key string, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		store:   store,
		key:     key,
		timeout: 10 * time.Second,
		logger:  logger.With("component", "state_persister", "state_key", key),
	}
}

// Save writes state to the store.
func (p *Persister) Save(state ProcessingState) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.store.Save(ctx, p.key, state); err != nil {
		p.logger.Error("failed to save processing state",
			"error", err,
			"completed", len(state.CompletedIDs),
			"failed", len(state.FailedIDs))
		return
	}
	p.logger.Debug("processing state saved",
		"completed", len(state.CompletedIDs),
		"failed", len(state.FailedIDs),
		"skipped", len(state.SkippedIDs),
		"current_index", state.CurrentIndex)
}

// Clear removes the stored snapshot.
func (p *Persister) Clear(ctx context.Context) error {
	if err := p.store.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("failed to clear processing state: %w", err)
	}
	p.logger.Info("processing state cleared")
	return nil
}

// MemoryStateStore is an in-memory StateStore. Snapshots are stored as JSON
// so callers never share slices with the store.
type MemoryStateStore struct {
	mutex  sync.RWMutex
	states map[string][]byte

	// SaveFn, when set, replaces the default Save behavior.
	SaveFn func(ctx context.Context, key string, state ProcessingState) error
}

// NewMemoryStateStore creates an empty MemoryStateStore.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string][]byte),
	}
}

// Save implements StateStore.
func (s *MemoryStateStore) Save(ctx context.Context, key string, state ProcessingState) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, key, state)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode processing state: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.states[key] = data
	return nil
}

// Load implements StateStore.
func (s *MemoryStateStore) Load(ctx context.Context, key string) (*ProcessingState, error) {
	s.mutex.RLock()
	data, ok := s.states[key]
	s.mutex.RUnlock()

	if !ok {
		return nil, ErrStateNotFound
	}

	var state ProcessingState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode processing state: %w", err)
	}
	return &state, nil
}

// Delete implements StateStore.
func (s *MemoryStateStore) Delete(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.states, key)
	return nil
}

// Len returns the number of stored snapshots.
func (s *MemoryStateStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.states)
}
