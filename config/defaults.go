package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "lifedex",
			Version:     "dev",
			Environment: "development",
			Debug:       false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Storage: StorageConfig{
			Type: "memory",
			Badger: BadgerConfig{
				Path:       "./data/badger",
				SyncWrites: true,
				InMemory:   false,
			},
			SQLite: SQLiteConfig{
				Path: "./data/lifedex.db",
			},
		},
		Collaborator: CollaboratorConfig{
			Provider:          "none",
			Model:             "claude-sonnet-4-20250514",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
			BatchConcurrency:  10,
		},
		Synthesis: SynthesisConfig{
			SweepInterval:    0,
			SweepConcurrency: 4,
		},
		Retrieval: RetrievalConfig{
			MaxDocuments: 5,
			CacheEnabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9091,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Endpoint:   "localhost:4317",
			SampleRate: 0.1,
		},
	}
}
