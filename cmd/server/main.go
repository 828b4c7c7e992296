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

	"github.com/lysyi3m/course-comb/app/api"
	"github.com/lysyi3m/course-comb/app/catalog"
	"github.com/lysyi3m/course-comb/app/cfg"
	"github.com/lysyi3m/course-comb/app/database"
	"github.com/lysyi3m/course-comb/app/metrics"
	"github.com/lysyi3m/course-comb/app/query"
	"github.com/lysyi3m/course-comb/app/refresh"
	"github.com/lysyi3m/course-comb/app/sources"
	"github.com/lysyi3m/course-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Course Comb server", "version", appCfg.Version)

	store, closeStore, err := openStore(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open catalog store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	configs, err := loadSourceConfigs(appCfg.SourcesDir)
	if err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}

	registry := sources.NewRegistry()
	fetcherOpts := sources.FetcherOptions{
		Client:    &http.Client{},
		UserAgent: appCfg.UserAgent,
	}
	if err := sources.RegisterConfigs(registry, configs, fetcherOpts); err != nil {
		slog.Error("Failed to register sources", "error", err)
		os.Exit(1)
	}
	slog.Info("Sources registered", "total", registry.Len(), "active", len(registry.ListActive()))

	metricsManager := metrics.NewManager()

	coordinator := refresh.NewCoordinator(registry, store,
		refresh.WithAdapterTimeout(appCfg.AdapterTimeout),
		refresh.WithMetrics(metricsManager))

	service := query.NewService(store, coordinator, registry)

	scheduler := tasks.NewScheduler(coordinator, store, tasks.Options{
		Interval:       appCfg.RefreshInterval,
		WorkerCount:    appCfg.WorkerCount,
		RefreshOnStart: appCfg.RefreshOnStart,
		SeedFile:       appCfg.SeedFile,
	})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(service, store, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey, metricsManager)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// openStore returns the SQLite repository when a path is configured and the
// in-memory store otherwise.
func openStore(path string) (catalog.Store, func(), error) {
	if path == "" {
		slog.Info("Using in-memory catalog store")
		return catalog.NewMemoryStore(), func() {}, nil
	}

	db, err := database.NewConnection(path)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Connected to database", "path", path)

	return database.NewCourseRepository(db), func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}, nil
}

// loadSourceConfigs reads source definitions, falling back to the built-in
// placeholders when the directory holds none.
func loadSourceConfigs(dir string) ([]*sources.Config, error) {
	configCache := sources.NewConfigCache(dir)
	if err := configCache.Run(); err != nil {
		return nil, err
	}

	if configCache.GetConfigCount() == 0 {
		slog.Warn("No source configurations found, registering placeholders", "dir", dir)
		return sources.DefaultConfigs(), nil
	}

	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())
	return configCache.GetConfigs(), nil
}
