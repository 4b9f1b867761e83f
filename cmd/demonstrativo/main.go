package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"demonstrativo/internal/amqp"
	"demonstrativo/internal/cli"
	apphttp "demonstrativo/internal/http"
	"demonstrativo/internal/ledger"
	applog "demonstrativo/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer res.Close()

	pipeline, err := ledger.NewPipeline(nil, cfg.StatusPolicy, logger)
	if err != nil {
		logger.Error("Invalid status policy", applog.FieldError, err, applog.FieldPolicy, cfg.StatusPolicy.String())
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Reader:        res.Reader,
		Pinger:        res.Pinger,
		Pipeline:      pipeline,
		PageSize:      cfg.PageSize,
		CacheTTL:      cfg.ReportCacheTTL,
		SourceTimeout: cfg.SourceTimeout,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("Failed to create server", applog.FieldError, err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting demonstrativo server",
			"port", cfg.Port,
			applog.FieldBackend, res.Type.String(),
			applog.FieldSource, res.Source,
			applog.FieldPolicy, cfg.StatusPolicy.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		return nil
	})

	// A mirrored ledger changes only when the worker announces a sync.
	if res.Mirror != nil && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, cached reports expire by TTL only",
				applog.FieldError, err,
				applog.FieldComponent, applog.ComponentAMQP)
		} else {
			defer client.Close()
			g.Go(func() error {
				err := client.ConsumeLedgerSynced(gctx, func(ctx context.Context, msg *amqp.LedgerSyncedMessage) error {
					srv.InvalidateReports()
					logger.InfoContext(ctx, "Mirror refreshed, reports invalidated",
						"rows", msg.Rows,
						applog.FieldSource, msg.Source,
						"synced_at", msg.SyncedAt)
					return nil
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Sync notification consumer stopped", applog.FieldError, err)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
