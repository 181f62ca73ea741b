package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	defer logger.Sync()

	if len(cfg.Brokers()) == 0 {
		logger.Fatal("KAFKA_BROKERS is required for the worker")
	}

	db, err := database.New(cfg.DatabaseURL, false, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize worker
	w := worker.New(cfg, logger, db.DB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start worker
	logger.Info("Starting worker...")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Start(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")
		return w.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error: %v", err)
	}
}
