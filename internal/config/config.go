package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/scry-ingest/internal/batch"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log    LogConfig    `mapstructure:"log" validate:"required"`
	Batch  BatchConfig  `mapstructure:"batch" validate:"required"`
	Store  StoreConfig  `mapstructure:"store" validate:"required"`
	LLM    LLMConfig    `mapstructure:"llm" validate:"required"`
	Server ServerConfig `mapstructure:"server"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// BatchConfig contains the tuning of the batch scheduler.
type BatchConfig struct {
	ChunkSize            int   `mapstructure:"chunk_size" validate:"gt=0"`
	MaxConcurrency       int   `mapstructure:"max_concurrency" validate:"gt=0,lte=64"`
	MaxRetries           int   `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryBackoffMs       []int `mapstructure:"retry_backoff_ms" validate:"dive,gte=0"`
	ProgressSaveInterval int   `mapstructure:"progress_save_interval" validate:"gt=0"`
	InterChunkDelayMs    int   `mapstructure:"inter_chunk_delay_ms" validate:"gte=0"`
	ItemTimeoutSeconds   int   `mapstructure:"item_timeout_seconds" validate:"gt=0"`
	StaleAfterHours      int   `mapstructure:"stale_after_hours" validate:"gt=0"`
	MaxFileSizeBytes     int64 `mapstructure:"max_file_size_bytes" validate:"gt=0"`
}

// SchedulerConfig converts the section into a batch.Config.
func (c BatchConfig) SchedulerConfig() batch.Config {
	backoff := make([]time.Duration, 0, len(c.RetryBackoffMs))
	for _, ms := range c.RetryBackoffMs {
		backoff = append(backoff, time.Duration(ms)*time.Millisecond)
	}

	return batch.Config{
		ChunkSize:      c.ChunkSize,
		MaxConcurrency: c.MaxConcurrency,
		Retry: batch.RetryPolicy{
			MaxRetries: c.MaxRetries,
			Backoff:    backoff,
		},
		ProgressSaveInterval: c.ProgressSaveInterval,
		InterChunkDelay:      time.Duration(c.InterChunkDelayMs) * time.Millisecond,
		ItemTimeout:          time.Duration(c.ItemTimeoutSeconds) * time.Second,
	}
}

// StaleAfter returns the snapshot staleness window.
func (c BatchConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterHours) * time.Hour
}

// StoreConfig selects where processing state is persisted.
type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=memory badger postgres"`
	BadgerDir   string `mapstructure:"badger_dir" validate:"required_if=Driver badger"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres,omitempty,url"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string  `mapstructure:"model_name" validate:"required"`
	Temperature  float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// ServerConfig controls the optional operator HTTP API.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host" validate:"required,ip|hostname"`
	Port    int    `mapstructure:"port" validate:"gt=0,lt=65536"`
	// AuthSecret signs operator tokens. When set, state-changing routes
	// require a bearer token.
	AuthSecret           string `mapstructure:"auth_secret" validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsLoopback reports whether Host only accepts local connections.
func (c ServerConfig) IsLoopback() bool {
	if strings.EqualFold(c.Host, "localhost") {
		return true
	}
	ip := net.ParseIP(c.Host)
	return ip != nil && ip.IsLoopback()
}

// TokenLifetime returns how long minted operator tokens stay valid.
func (c ServerConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// validate enforces that an API reachable off-host is authenticated.
func (c ServerConfig) validate() error {
	if c.Enabled && !c.IsLoopback() && c.AuthSecret == "" {
		return fmt.Errorf("server.auth_secret is required when server.host %q is not a loopback address", c.Host)
	}
	return nil
}
