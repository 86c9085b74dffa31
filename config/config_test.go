package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test App defaults
	if cfg.App.Name != "lifedex" {
		t.Errorf("expected app name 'lifedex', got %s", cfg.App.Name)
	}
	if cfg.App.Environment != "development" {
		t.Errorf("expected environment 'development', got %s", cfg.App.Environment)
	}

	// Test Log defaults
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected log format 'json', got %s", cfg.Log.Format)
	}

	// Test Storage defaults
	if cfg.Storage.Type != "memory" {
		t.Errorf("expected storage type 'memory', got %s", cfg.Storage.Type)
	}
	if !cfg.Storage.Badger.SyncWrites {
		t.Error("expected badger sync_writes to be true")
	}

	// Test Collaborator defaults
	if cfg.Collaborator.Provider != "none" {
		t.Errorf("expected collaborator provider 'none', got %s", cfg.Collaborator.Provider)
	}
	if cfg.Collaborator.BatchConcurrency != 10 {
		t.Errorf("expected batch concurrency 10, got %d", cfg.Collaborator.BatchConcurrency)
	}

	// Test Retrieval defaults
	if cfg.Retrieval.MaxDocuments != 5 {
		t.Errorf("expected max documents 5, got %d", cfg.Retrieval.MaxDocuments)
	}

	// Test Metrics defaults
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics.enabled to be true")
	}
	if cfg.Metrics.Port != 9091 {
		t.Errorf("expected metrics port 9091, got %d", cfg.Metrics.Port)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
app:
  name: lifedex-test
  environment: staging
log:
  level: debug
storage:
  type: sqlite
  sqlite:
    path: /tmp/test.db
collaborator:
  provider: anthropic
  timeout: 10s
retrieval:
  max_documents: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "lifedex-test" {
		t.Errorf("expected app name 'lifedex-test', got %s", cfg.App.Name)
	}
	if cfg.App.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %s", cfg.App.Environment)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("expected storage type 'sqlite', got %s", cfg.Storage.Type)
	}
	if cfg.Storage.SQLite.Path != "/tmp/test.db" {
		t.Errorf("expected sqlite path '/tmp/test.db', got %s", cfg.Storage.SQLite.Path)
	}
	if cfg.Collaborator.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic', got %s", cfg.Collaborator.Provider)
	}
	if cfg.Collaborator.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Collaborator.Timeout)
	}
	if cfg.Retrieval.MaxDocuments != 3 {
		t.Errorf("expected max documents 3, got %d", cfg.Retrieval.MaxDocuments)
	}

	// Unspecified values keep their defaults.
	if cfg.Metrics.Port != 9091 {
		t.Errorf("expected default metrics port 9091, got %d", cfg.Metrics.Port)
	}
	if cfg.Collaborator.BatchConcurrency != 10 {
		t.Errorf("expected default batch concurrency 10, got %d", cfg.Collaborator.BatchConcurrency)
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("LIFEDEX_STORAGE_TYPE", "badger")
	t.Setenv("LIFEDEX_LOG_LEVEL", "warn")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Type != "badger" {
		t.Errorf("expected storage type 'badger' from env, got %s", cfg.Storage.Type)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level 'warn' from env, got %s", cfg.Log.Level)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	overrides := map[string]interface{}{
		"app.environment":         "production",
		"retrieval.max_documents": 8,
	}
	cfg, err := Load("", overrides)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Environment != "production" {
		t.Errorf("expected environment 'production', got %s", cfg.App.Environment)
	}
	if cfg.Retrieval.MaxDocuments != 8 {
		t.Errorf("expected max documents 8, got %d", cfg.Retrieval.MaxDocuments)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
	}{
		{"bad storage type", map[string]interface{}{"storage.type": "postgres"}},
		{"bad environment", map[string]interface{}{"app.environment": "qa"}},
		{"bad log level", map[string]interface{}{"log.level": "trace"}},
		{"bad provider", map[string]interface{}{"collaborator.provider": "openai"}},
		{"bad sample rate", map[string]interface{}{"tracing.sample_rate": 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load("", tt.overrides); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadUnsupportedFileFormat(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(configPath, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(configPath, nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
