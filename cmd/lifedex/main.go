package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/lifedex/lifedex/config"
	"github.com/lifedex/lifedex/pkg/classify"
	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/collab/anthropic"
	"github.com/lifedex/lifedex/pkg/conflict"
	"github.com/lifedex/lifedex/pkg/hub"
	"github.com/lifedex/lifedex/pkg/logger"
	"github.com/lifedex/lifedex/pkg/metrics"
	"github.com/lifedex/lifedex/pkg/retrieval"
	"github.com/lifedex/lifedex/pkg/storage"
	"github.com/lifedex/lifedex/pkg/storage/badger"
	"github.com/lifedex/lifedex/pkg/storage/memory"
	"github.com/lifedex/lifedex/pkg/storage/sqlite"
	"github.com/lifedex/lifedex/pkg/synthesis"
	"github.com/lifedex/lifedex/pkg/telemetry/tracing"
	"github.com/lifedex/lifedex/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	storageType = flag.String("storage", "", "Override storage backend (memory, badger, sqlite)")
	logLevel    = flag.String("log-level", "", "Override log level")
	debugMode   = flag.Bool("debug", false, "Enable debug mode")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath, buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug || *debugMode {
		logCfg.Level = "debug"
	}
	log := logger.New(logCfg)
	defer log.Close()

	log.Info("Starting lifedex",
		"version", version.Version,
		"buildTime", version.BuildTime,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("Error shutting down tracing", "error", err)
		}
	}()

	store, err := openStore(cfg, log)
	if err != nil {
		log.Error("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()

	metricsCfg := metrics.DefaultConfig()
	metricsCfg.Enabled = cfg.Metrics.Enabled
	metricsCfg.Port = cfg.Metrics.Port
	metricsCfg.Path = cfg.Metrics.Path
	metricsManager := metrics.NewManager(metricsCfg)

	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	var text collab.TextService
	if cfg.Collaborator.Provider == "anthropic" {
		text, err = anthropic.New(anthropic.Config{
			APIKey:  cfg.Collaborator.APIKey,
			Model:   cfg.Collaborator.Model,
			Timeout: cfg.Collaborator.Timeout,
		})
		if err != nil {
			log.Error("Failed to create text service", "error", err)
			os.Exit(1)
		}
		text = metrics.InstrumentText(text, metricsManager)
		log.Info("Initialized Anthropic collaborator", "model", cfg.Collaborator.Model)
	} else {
		log.Warn("No text collaborator configured, classification uses the static fallback table")
	}

	var limiter *rate.Limiter
	if cfg.Collaborator.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Collaborator.RequestsPerSecond), 1)
	}

	classifier := classify.New(store, text, log.Logger,
		classify.WithLimiter(limiter),
		classify.WithBatchConcurrency(cfg.Collaborator.BatchConcurrency),
	)
	resolver := conflict.New(store, text, log.Logger,
		conflict.WithLimiter(limiter),
	)
	engine := synthesis.New(store, text, nil, log.Logger,
		synthesis.WithLimiter(limiter),
		synthesis.WithSweepConcurrency(cfg.Synthesis.SweepConcurrency),
	)

	retrieverOpts := []retrieval.Option{}
	if cfg.Retrieval.CacheEnabled {
		cache, err := retrieval.NewCache()
		if err != nil {
			log.Error("Failed to create retrieval cache", "error", err)
			os.Exit(1)
		}
		retrieverOpts = append(retrieverOpts, retrieval.WithCache(cache))
	}
	retriever := retrieval.New(store, nil, log.Logger, retrieverOpts...)

	h := hub.New(store, classifier, resolver, engine, retriever, log.Logger,
		hub.WithMetrics(metricsManager),
	)

	if cfg.Synthesis.SweepInterval > 0 {
		go runSweepLoop(ctx, h, cfg.Synthesis.SweepInterval, log)
	}

	if *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, config.NewLoader())
		if err != nil {
			log.Warn("Config watcher unavailable", "error", err)
		} else {
			hot := config.ExtractHotReloadable(cfg)
			watcher.OnChange(func(next *config.Config) {
				nextHot := config.ExtractHotReloadable(next)
				if !hot.Changed(nextHot) {
					return
				}
				if nextHot.LogLevel != hot.LogLevel {
					log.SetLevel(nextHot.LogLevel)
					log.Info("Log level updated", "level", nextHot.LogLevel)
				}
				hot = nextHot
			})
			go func() {
				if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("Config watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	log.Info("lifedex is running",
		"storage", cfg.Storage.Type,
		"collaborator", cfg.Collaborator.Provider,
		"sweep_interval", cfg.Synthesis.SweepInterval,
		"metrics_port", cfg.Metrics.Port,
	)
	log.Info("Press Ctrl+C to stop")

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig)
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	log.Info("lifedex stopped gracefully")
}

func openStore(cfg *config.Config, log *logger.Logger) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "badger":
		store, err := badger.Open(badger.Options{
			Path:       cfg.Storage.Badger.Path,
			SyncWrites: cfg.Storage.Badger.SyncWrites,
			InMemory:   cfg.Storage.Badger.InMemory,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Initialized Badger storage", "path", cfg.Storage.Badger.Path)
		return store, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		log.Info("Initialized SQLite storage", "path", cfg.Storage.SQLite.Path)
		return store, nil
	case "memory":
		log.Info("Initialized memory storage")
		return memory.NewMemoryStore(), nil
	default:
		log.Warn("Unknown storage type, using memory storage", "type", cfg.Storage.Type)
		return memory.NewMemoryStore(), nil
	}
}

func runSweepLoop(ctx context.Context, h *hub.Hub, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.SweepStale(ctx, nil); err != nil {
				log.Error("Stale sweep failed", "error", err)
			}
		}
	}
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *storageType != "" {
		overrides["storage.type"] = *storageType
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printVersion() {
	fmt.Printf("lifedex - Personal Memory Index Engine\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Go Version: %s\n", version.GoVersion)
}

func printHelp() {
	fmt.Printf("lifedex - Personal memory ingestion and profile synthesis engine\n\n")
	fmt.Printf("Usage: lifedex [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  lifedex                                   # Run with default config\n")
	fmt.Printf("  lifedex -config config.yaml               # Use specific config file\n")
	fmt.Printf("  lifedex -storage sqlite -log-level debug  # Override specific options\n")
	fmt.Printf("  lifedex -version                          # Print version info\n")
}
