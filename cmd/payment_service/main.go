package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/payment-intents-service/internal/api"
	"github.com/payment-intents-service/internal/config"
	"github.com/payment-intents-service/internal/data/mongo"
	"github.com/payment-intents-service/internal/data/postgres"
	"github.com/payment-intents-service/internal/events"
	"github.com/payment-intents-service/internal/logger"
	"github.com/payment-intents-service/internal/payments"
	"github.com/payment-intents-service/internal/platform/gateway"
	"github.com/payment-intents-service/internal/platform/messaging/producers"
	"github.com/payment-intents-service/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("payment_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for payment lifecycle events
	eventProducer, err := producers.NewPaymentEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize the gateway client and the stores
	stripeClient := gateway.NewStripeClient(log, &cfg.Stripe)
	ledgerStore := postgres.NewStore(log, postgresDB)
	eventArchive := mongo.NewEventArchive(log, mongoDB.Database())

	// Initialize the async webhook event archiver
	archiver, err := events.NewArchiver(log, eventArchive, events.ArchiverConfig{
		PoolSize: cfg.WorkerPool.Size,
	})
	if err != nil {
		log.Error("Failed to initialize event archiver", "error", err)
		os.Exit(1)
	}

	// Initialize the orchestrator
	orchestrator := payments.NewOrchestrator(log, cfg.Payments, stripeClient, ledgerStore, eventProducer)

	// Initialize REST server
	server := api.NewServer(log, cfg, orchestrator, archiver)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new work arrives
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	archiver.Shutdown()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
