package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SCRY_BATCH_CHUNK_SIZE.
const EnvPrefix = "SCRY"

// setDefaults registers every key so environment variables can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("batch.chunk_size", 10)
	v.SetDefault("batch.max_concurrency", 2)
	v.SetDefault("batch.max_retries", 2)
	v.SetDefault("batch.retry_backoff_ms", []int{1000, 2000})
	v.SetDefault("batch.progress_save_interval", 10)
	v.SetDefault("batch.inter_chunk_delay_ms", 500)
	v.SetDefault("batch.item_timeout_seconds", 60)
	v.SetDefault("batch.stale_after_hours", 24)
	v.SetDefault("batch.max_file_size_bytes", 10*1024*1024)

	v.SetDefault("store.driver", "badger")
	v.SetDefault("store.badger_dir", ".scry-ingest/state")
	v.SetDefault("store.database_url", "")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.1)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.auth_secret", "")
	v.SetDefault("server.token_lifetime_minutes", 720)
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags and the batch engine's own
// constraints.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Batch.SchedulerConfig().Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Server.validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
