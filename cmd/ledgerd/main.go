package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finledger/internal/backend"
	"finledger/internal/config"
	"finledger/internal/events"
	"finledger/internal/scheduler"
	"finledger/internal/services"
)

func main() {
	// Load .env for local development (ignore errors in production).
	_ = godotenv.Load()

	cfg := config.Load()

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting ledgerd")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := backend.New(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err, "backend", cfg.Backend)
		os.Exit(1)
	}
	defer store.Close()

	// AMQP is optional: without it the ledger runs store-only and
	// downstream consumers simply see no events.
	var publisher *events.Client
	if cfg.AMQPURL != "" {
		publisher, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
			logger.Info("AMQP event publishing enabled",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - ledger events will not be published")
	}

	ledger := services.NewLedgerService(store, publisher, cfg.RetryAttempts)

	sched := scheduler.New(store, ledger, cfg.RecurringInterval)
	logger.Info("Recurring scheduler configured",
		"interval", cfg.RecurringInterval,
		"backend", cfg.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		sched.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("ledgerd shutdown complete")
}
