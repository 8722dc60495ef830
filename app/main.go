package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platevue/venue-comb/app/api"
	"github.com/platevue/venue-comb/app/cfg"
	"github.com/platevue/venue-comb/app/config"
	"github.com/platevue/venue-comb/app/database"
	"github.com/platevue/venue-comb/app/matching"
	"github.com/platevue/venue-comb/app/provider"
	"github.com/platevue/venue-comb/app/runner"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Venue Comb server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	configCache := config.NewCache(appCfg.RunsDir, config.Defaults{
		BatchSize:           appCfg.BatchSize,
		SimilarityThreshold: appCfg.SimilarityThreshold,
		MaxPhotos:           appCfg.MaxPhotos,
	})
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load run configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Run configurations loaded", "count", configCache.GetConfigCount(), "dir", appCfg.RunsDir)

	establishmentRepo := database.NewEstablishmentRepository(db)
	itemRepo := database.NewItemRepository(db)
	outcomeRepo := database.NewOutcomeRepository(db)

	client := provider.NewClient(
		time.Duration(appCfg.RequestIntervalMs)*time.Millisecond,
		time.Duration(appCfg.RetryDelaySec)*time.Second,
		appCfg.MaxRetries, false)
	places := provider.NewPlacesClient(client, appCfg.PlacesAPIURL, appCfg.PlacesAPIKey, appCfg.UserAgent)
	menus := provider.NewMenuClient(client, appCfg.MenuAPIURL, appCfg.MenuAPIKey, appCfg.UserAgent)

	dedupThresholds := matching.DedupThresholds{
		NameSimilarity:      appCfg.DedupNameThreshold,
		AddressSimilarity:   appCfg.DedupAddressThreshold,
		ExactNameAddressSim: appCfg.DedupExactAddrThreshold,
	}
	detector := matching.NewDetector(matching.NewNormalizer(nil), dedupThresholds)

	pipelineRunner := runner.NewRunner(places, menus, establishmentRepo, itemRepo, outcomeRepo, dedupThresholds)
	manager := runner.NewManager(pipelineRunner, configCache, time.Hour)
	manager.Start()
	defer manager.Stop()

	apiHandler := api.NewHandler(configCache, establishmentRepo, itemRepo, outcomeRepo, detector, manager, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
