package main

import (
	"context"
	"os"
	"time"

	"demonstrativo/internal/amqp"
	"demonstrativo/internal/backend"
	"demonstrativo/internal/cli"
	applog "demonstrativo/internal/log"
	"demonstrativo/internal/storage"
	"demonstrativo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateWorkerConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	upstream, err := backend.NewFactory(logger).CreateUpstream(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize upstream",
			applog.FieldBackend, cfg.SyncSource,
			applog.FieldError, err)
		os.Exit(1)
	}
	defer upstream.Close()

	mirror, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer mirror.Close()
	mirror.WithSource(upstream.Source)

	if info, ok, err := mirror.LastSync(ctx); err != nil {
		logger.Warn("Failed to read last sync", applog.FieldError, err)
	} else if ok {
		logger.Info("Mirror state",
			"synced_at", info.SyncedAt,
			"rows", info.RowCount,
			applog.FieldSource, info.Source)
	}

	// Sync notifications are optional; the dashboard falls back to its TTL.
	var publisher worker.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, syncs will not be announced",
				applog.FieldError, err,
				applog.FieldComponent, applog.ComponentAMQP)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	wcfg := worker.DefaultConfig()
	wcfg.Interval = cfg.SyncInterval
	wcfg.Source = upstream.Source
	if cfg.SourceTimeout > 0 {
		wcfg.Timeout = 2 * cfg.SourceTimeout
	}

	syncWorker := worker.NewSyncWorker(upstream.Reader, mirror, publisher, wcfg, logger)
	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to start sync worker", applog.FieldError, err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-syncWorker.Done():
		logger.Warn("Sync loop exited")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := syncWorker.Stop(shutdownCtx); err != nil {
		logger.Error("Worker shutdown error", applog.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}
