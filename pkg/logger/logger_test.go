package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifedex.log")
	log := New(&Config{Level: "info", Format: "json", Output: path})

	log.Info("hello", "key", "value")
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing message: %s", data)
	}
	if !strings.Contains(string(data), `"key":"value"`) {
		t.Errorf("log file missing attribute: %s", data)
	}
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifedex.log")
	log := New(&Config{Level: "error", Format: "json", Output: path})

	log.Info("suppressed")
	log.SetLevel("debug")
	log.Debug("visible")
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "suppressed") {
		t.Error("message below level was logged")
	}
	if !strings.Contains(string(data), "visible") {
		t.Error("message after SetLevel was not logged")
	}
}

func TestNilConfigDefaults(t *testing.T) {
	log := New(nil)
	if log.Logger == nil {
		t.Fatal("expected usable logger from nil config")
	}
	log.Info("ok")
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
