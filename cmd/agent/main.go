package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquawatch/aquawatch-core/internal/api"
	"github.com/aquawatch/aquawatch-core/internal/config"
	"github.com/aquawatch/aquawatch-core/internal/engine"
	"github.com/aquawatch/aquawatch-core/internal/services"
	"github.com/aquawatch/aquawatch-core/internal/state"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting AQUAWATCH-CORE", "environment", cfg.Environment, "backend", cfg.Backend.BaseURL)

	// Initialize backend client and the session read model
	client := services.NewLeakwatchClient(cfg.Backend, logger)
	store := state.NewStore(state.Capacities{
		Telemetry:     cfg.Buffers.Telemetry,
		QualityTrend:  cfg.Buffers.QualityTrend,
		Alerts:        cfg.Buffers.Alerts,
		QualityAlerts: cfg.Buffers.QualityAlerts,
	})

	// Initialize the synchronization engine
	eng := engine.New(cfg, client, store, logger)

	// Initialize API server
	apiServer := api.NewServer(cfg, logger, store, eng)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Start the engine: bootstrap, poll loops and push channels
	if err := eng.Start(ctx); err != nil {
		logger.Fatal("Engine failed to start", "error", err)
	}
	defer eng.Close()

	// Start server
	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal("Server failed to start", "error", err)
	}

	logger.Info("AQUAWATCH-CORE shutdown complete")
}
