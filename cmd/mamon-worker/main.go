// The worker consumes transaction events from the broker and writes an audit
// trail. It runs beside the web server and shares nothing with it but the
// exchange.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mamon/internal/amqp"
	"mamon/internal/config"
	applog "mamon/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	slog.Info("Starting mamon-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		slog.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	audit := slog.Default().With(applog.FieldComponent, applog.ComponentWorker)

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.ConsumeTransactionEvents(ctx, func(event *amqp.TransactionEvent) error {
			audit.Info("Transaction event",
				applog.FieldTransactionID, event.ID,
				applog.FieldUser, event.User,
				"action", event.Action,
				"timestamp", event.Timestamp.Format(time.RFC3339))
			return nil
		})
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Worker shutdown complete")
}
