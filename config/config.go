// Package config provides configuration management for Lifedex.
package config

import (
	"fmt"
	"time"
)

// Config is the global configuration for Lifedex.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Storage is the persistence configuration.
	Storage StorageConfig `mapstructure:"storage"`

	// Collaborator is the external service configuration.
	Collaborator CollaboratorConfig `mapstructure:"collaborator"`

	// Synthesis is the document regeneration configuration.
	Synthesis SynthesisConfig `mapstructure:"synthesis"`

	// Retrieval is the context retrieval configuration.
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the distributed tracing configuration.
	Tracing TracingConfig `mapstructure:"tracing"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Type is the storage backend (memory, badger, sqlite).
	Type string `mapstructure:"type" validate:"oneof=memory badger sqlite"`

	// Badger is the BadgerDB configuration.
	Badger BadgerConfig `mapstructure:"badger"`

	// SQLite is the SQLite configuration.
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// BadgerConfig holds BadgerDB-specific settings.
type BadgerConfig struct {
	// Path is the database directory path.
	Path string `mapstructure:"path"`

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool `mapstructure:"sync_writes"`

	// InMemory runs the database without touching disk.
	InMemory bool `mapstructure:"in_memory"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `mapstructure:"path"`
}

// CollaboratorConfig holds external text-service settings.
type CollaboratorConfig struct {
	// Provider is the text-service backend (anthropic, none).
	Provider string `mapstructure:"provider" validate:"oneof=anthropic none"`

	// Model is the model identifier for generation calls.
	Model string `mapstructure:"model"`

	// APIKey is the provider API key. Usually supplied via environment.
	APIKey string `mapstructure:"api_key"`

	// Timeout is the per-call deadline.
	Timeout time.Duration `mapstructure:"timeout"`

	// RequestsPerSecond throttles outbound collaborator calls.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`

	// BatchConcurrency bounds batch classification fan-out.
	BatchConcurrency int `mapstructure:"batch_concurrency" validate:"min=1"`
}

// SynthesisConfig holds document regeneration settings.
type SynthesisConfig struct {
	// SweepInterval is how often the stale sweep runs. Zero disables it.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// SweepConcurrency bounds how many users sweep in parallel.
	SweepConcurrency int `mapstructure:"sweep_concurrency" validate:"min=1"`
}

// RetrievalConfig holds context retrieval settings.
type RetrievalConfig struct {
	// MaxDocuments bounds every retrieval mode.
	MaxDocuments int `mapstructure:"max_documents" validate:"min=1"`

	// CacheEnabled fronts document listing with an in-process cache.
	CacheEnabled bool `mapstructure:"cache_enabled"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	Enabled bool `mapstructure:"enabled"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`

	// Port is the metrics server port.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// TracingConfig holds distributed tracing settings.
type TracingConfig struct {
	// Enabled enables distributed tracing.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `mapstructure:"endpoint"`

	// SampleRate is the fraction of traces to sample (0.0-1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// String returns a string representation of the configuration (without sensitive data).
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, Storage: %s, Env: %s}",
		c.App.Name, c.Storage.Type, c.App.Environment)
}
