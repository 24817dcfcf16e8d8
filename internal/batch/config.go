package batch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the tunable constants of a Scheduler.
type Config struct {
	// ChunkSize is the maximum number of items popped per chunk.
	ChunkSize int `validate:"gt=0"`

	// MaxConcurrency bounds how many items of a chunk run at once.
	MaxConcurrency int `validate:"gt=0"`

	Retry RetryPolicy

	// ProgressSaveInterval is the number of processed items between snapshots.
	ProgressSaveInterval int `validate:"gt=0"`

	// InterChunkDelay throttles load on whatever backs the ProcessFunc.
	InterChunkDelay time.Duration `validate:"gte=0"`

	// ItemTimeout bounds a single attempt. Zero disables the timeout.
	ItemTimeout time.Duration `validate:"gte=0"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		ChunkSize:            10,
		MaxConcurrency:       2,
		Retry:                DefaultRetryPolicy(),
		ProgressSaveInterval: 10,
		InterChunkDelay:      500 * time.Millisecond,
		ItemTimeout:          60 * time.Second,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and returns an error wrapping
// ErrInvalidConfig on failure.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c.Retry.Validate()
}

// LogValue implements slog.LogValuer.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("chunk_size", c.ChunkSize),
		slog.Int("max_concurrency", c.MaxConcurrency),
		slog.Int("max_retries", c.Retry.MaxRetries),
		slog.Int("progress_save_interval", c.ProgressSaveInterval),
		slog.Duration("inter_chunk_delay", c.InterChunkDelay),
		slog.Duration("item_timeout", c.ItemTimeout),
	)
}
