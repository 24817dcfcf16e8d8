// Package postgres provides a PostgreSQL implementation of batch.StateStore.
// Snapshots are stored as JSONB rows keyed by state key, and the schema is
// managed with goose migrations embedded in the binary.
package postgres
