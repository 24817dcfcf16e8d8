// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides
// type-safe access to the settings of the ingestion pipeline while keeping
// configuration details separate from the batch engine itself.
package config
