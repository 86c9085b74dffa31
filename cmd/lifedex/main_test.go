package main

import (
	"os"
	"strings"
	"testing"

	"github.com/lifedex/lifedex/config"
	"github.com/lifedex/lifedex/pkg/logger"
	"github.com/lifedex/lifedex/pkg/storage/memory"
	"github.com/lifedex/lifedex/pkg/storage/sqlite"
)

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text", Output: "stderr"})
}

func TestOpenStore(t *testing.T) {
	log := testLogger()

	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Type: "memory"}}
		store, err := openStore(cfg, log)
		if err != nil {
			t.Fatalf("openStore: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*memory.MemoryStore); !ok {
			t.Errorf("expected memory store, got %T", store)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: t.TempDir() + "/lifedex.db"},
		}}
		store, err := openStore(cfg, log)
		if err != nil {
			t.Fatalf("openStore: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*sqlite.SQLiteStore); !ok {
			t.Errorf("expected sqlite store, got %T", store)
		}
	})

	t.Run("unknown falls back to memory", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Type: "cassandra"}}
		store, err := openStore(cfg, log)
		if err != nil {
			t.Fatalf("openStore: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*memory.MemoryStore); !ok {
			t.Errorf("expected memory store fallback, got %T", store)
		}
	})
}

func TestBuildOverrides(t *testing.T) {
	origStorage := *storageType
	origLogLevel := *logLevel
	origDebug := *debugMode
	defer func() {
		*storageType = origStorage
		*logLevel = origLogLevel
		*debugMode = origDebug
	}()

	*storageType = ""
	*logLevel = ""
	*debugMode = false
	if got := buildOverrides(); len(got) != 0 {
		t.Errorf("expected empty overrides, got %d items", len(got))
	}

	*storageType = "sqlite"
	*logLevel = "debug"
	*debugMode = true
	overrides := buildOverrides()
	if len(overrides) != 3 {
		t.Errorf("expected 3 overrides, got %d", len(overrides))
	}
	if overrides["storage.type"] != "sqlite" {
		t.Errorf("expected storage.type=sqlite, got %v", overrides["storage.type"])
	}
	if overrides["log.level"] != "debug" {
		t.Errorf("expected log.level=debug, got %v", overrides["log.level"])
	}
	if overrides["app.debug"] != true {
		t.Errorf("expected app.debug=true, got %v", overrides["app.debug"])
	}
}

func TestPrintVersion(t *testing.T) {
	output := captureStdout(t, printVersion)
	for _, expected := range []string{"lifedex", "Version:", "Build Time:", "Git Commit:", "Go Version:"} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected output to contain %q, got: %s", expected, output)
		}
	}
}

func TestPrintHelp(t *testing.T) {
	output := captureStdout(t, printHelp)
	for _, expected := range []string{"lifedex", "Usage:", "Options:", "Examples:"} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected output to contain %q, got: %s", expected, output)
		}
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return string(buf[:n])
}
