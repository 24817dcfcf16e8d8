package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/platform/logger"
	"github.com/phrazzld/scry-ingest/internal/store"
)

// StateStore implements batch.StateStore using PostgreSQL.
type StateStore struct {
	db store.DBTX
}

var _ batch.StateStore = (*StateStore)(nil)

// NewStateStore creates a StateStore over db.
func NewStateStore(db store.DBTX) *StateStore {
	return &StateStore{db: db}
}

// Save upserts the snapshot under key.
func (s *StateStore) Save(ctx context.Context, key string, state batch.ProcessingState) error {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode processing state: %w", err)
	}

	query := `
		INSERT INTO processing_states (state_key, state, saved_at, updated_at)
		VALUES ($1, $2::jsonb, $3, NOW())
		ON CONFLICT (state_key) DO UPDATE
		SET state = EXCLUDED.state, saved_at = EXCLUDED.saved_at, updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(data), state.Timestamp.UTC()); err != nil {
		log.Error("failed to save processing state",
			"state_key", key,
			"error", err)
		return fmt.Errorf("failed to save processing state: %w", MapError(err))
	}
	return nil
}

// Load returns the snapshot stored under key or batch.ErrStateNotFound.
func (s *StateStore) Load(ctx context.Context, key string) (*batch.ProcessingState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM processing_states WHERE state_key = $1`, key).Scan(&data)
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			return nil, batch.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to load processing state: %w", mapped)
	}

	var state batch.ProcessingState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", batch.ErrInvalidState, err)
	}
	return &state, nil
}

// Delete removes the snapshot under key. Deleting a missing key is not an error.
func (s *StateStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM processing_states WHERE state_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete processing state: %w", MapError(err))
	}
	return nil
}
