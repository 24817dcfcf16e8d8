// Package badger provides an embedded, file-backed implementation of
// batch.StateStore for single-host runs that have no database.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/store"
)

// StateStore implements batch.StateStore on top of a badger database.
type StateStore struct {
	db  *badger.DB
	ttl time.Duration
}

var _ batch.StateStore = (*StateStore)(nil)

// Open opens (or creates) a badger database in dir. Entries written with a
// positive ttl expire on their own, so abandoned snapshots do not pile up.
func Open(dir string, ttl time.Duration) (*StateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	return open(opts, ttl)
}

// OpenInMemory opens a badger database that lives only in memory.
func OpenInMemory(ttl time.Duration) (*StateStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts, ttl)
}

func open(opts badger.Options, ttl time.Duration) (*StateStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &StateStore{db: db, ttl: ttl}, nil
}

// Close releases the underlying database.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// Save writes the snapshot under key, replacing any previous one.
func (s *StateStore) Save(ctx context.Context, key string, state batch.ProcessingState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return store.NewStoreError("processing_state", "save", "encode failed", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return mapError("save", err)
	}
	return nil
}

// Load returns the snapshot stored under key or batch.ErrStateNotFound.
func (s *StateStore) Load(ctx context.Context, key string) (*batch.ProcessingState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, batch.ErrStateNotFound
	}
	if err != nil {
		return nil, mapError("load", err)
	}

	var state batch.ProcessingState
	if err := json.Unmarshal(value, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", batch.ErrInvalidState, err)
	}
	return &state, nil
}

// Delete removes the snapshot under key. Deleting a missing key is not an error.
func (s *StateStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return mapError("delete", err)
	}
	return nil
}

// Keys lists stored keys that start with prefix, in key order.
func (s *StateStore) Keys(prefix string) ([]string, error) {
	var keys []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, mapError("list", err)
	}
	return keys, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		err = fmt.Errorf("%w: %v", store.ErrStoreClosed, err)
	}
	return store.NewStoreError("processing_state", op, "badger operation failed", err)
}
