// Harrier - Risk entity screening that deploys in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/codefile"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/filter"
	"github.com/opensource-finance/harrier/internal/normalize"
	"github.com/opensource-finance/harrier/internal/registry"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/scoring"
	"github.com/opensource-finance/harrier/internal/search"
	"github.com/opensource-finance/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("HARRIER_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("HARRIER_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	// Code table files are optional; missing files fall back to the
	// built-in code set.
	cfg.Codes.UsagePath = os.Getenv("HARRIER_CODE_USAGE")
	cfg.Codes.DefinitionsPath = os.Getenv("HARRIER_CODE_DEFINITIONS")
	cfg.Codes.OverridesPath = os.Getenv("HARRIER_CODE_OVERRIDES")

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize code registry
	reg := registry.New()
	loadRegistry(reg, cfg.Codes)
	slog.Info("code registry initialized", "codes_count", reg.Count())

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize search pipeline collaborators
	builder := search.NewBuilder(search.DialectForDriver(cfg.Repository.Driver))
	normalizer := normalize.New(scoring.New(reg))

	filterEngine, err := filter.NewEngine()
	if err != nil {
		slog.Error("failed to initialize filter engine", "error", err)
		os.Exit(1)
	}

	// Initialize alert worker
	alertWorker := worker.NewWorker(busImpl, repo)
	if err := alertWorker.Start(); err != nil {
		slog.Error("failed to start alert worker", "error", err)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, reg, builder, normalizer, filterEngine, cfg.Codes.OverridesPath, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop alert worker first
	if err := alertWorker.Stop(); err != nil {
		slog.Error("failed to stop alert worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

// loadRegistry fills the registry from the configured code tables,
// falling back to the built-in set when no usage table is available.
func loadRegistry(reg *registry.Registry, cfg domain.CodesConfig) {
	if cfg.UsagePath == "" {
		reg.LoadBuiltin()
		slog.Info("no usage table configured, using built-in codes")
		applyOverrides(reg, cfg.OverridesPath)
		return
	}

	usage, err := codefile.LoadUsage(cfg.UsagePath)
	if err != nil {
		slog.Warn("failed to load usage table, using built-in codes",
			"path", cfg.UsagePath,
			"error", err,
		)
		reg.LoadBuiltin()
		applyOverrides(reg, cfg.OverridesPath)
		return
	}

	var defs []domain.CodeDefinition
	if cfg.DefinitionsPath != "" {
		defs, err = codefile.LoadDefinitions(cfg.DefinitionsPath)
		if err != nil {
			slog.Warn("failed to load definitions table",
				"path", cfg.DefinitionsPath,
				"error", err,
			)
		}
	}

	if err := reg.Load(usage, defs); err != nil {
		slog.Warn("usage table was empty, built-in codes loaded", "error", err)
	}
	applyOverrides(reg, cfg.OverridesPath)
}

func applyOverrides(reg *registry.Registry, path string) {
	if path == "" {
		return
	}
	overrides, err := codefile.LoadOverrides(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to load overrides", "path", path, "error", err)
		}
		return
	}
	reg.ApplyUserOverrides(overrides)
	slog.Info("user overrides applied", "count", len(overrides))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 HARRIER                  ║")
	fmt.Println("  ║      Risk Entity Screening Engine         ║")
	fmt.Println("  ║       Eyes on every entity.               ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /search               - Search entities")
	fmt.Println("    POST /search/export        - Export search results as CSV")
	fmt.Println("    GET  /entities/{type}/{id} - Get one entity")
	fmt.Println("    GET  /codes                - List event codes")
	fmt.Println("    GET  /codes/{code}         - Look up one code")
	fmt.Println("    PUT  /codes/{code}         - Create or customize a code")
	fmt.Println("    GET  /codes/overrides      - Export customizations")
	fmt.Println("    POST /codes/overrides      - Apply customizations")
	fmt.Println("    GET  /pep-types            - List PEP role types")
	fmt.Println("    GET  /alerts               - List screening alerts")
	fmt.Println("    GET  /health               - Health check")
	fmt.Println()
}
