// Command fintrack-worker mirrors the SQLite ledger to a Google Sheet.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout).WithComponent(log.ComponentWorker)

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if cfg.DataBackend != config.BackendSQLite {
		return fmt.Errorf("the worker needs DATA_BACKEND=sqlite, got %q", cfg.DataBackend)
	}
	logger.Info("Starting fintrack-worker")

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	// Rows that failed last time get a fresh version and go back to pending.
	if n, err := repo.RequeueSyncErrors(ctx); err != nil {
		logger.Warn("Failed to requeue sync errors", log.FieldError, err)
	} else if n > 0 {
		logger.Info("Requeued failed transactions", "count", n)
	}

	mirror, err := newMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Reconciliation still covers every pending row.
			logger.Warn("AMQP unavailable, running reconcile loop only", log.FieldError, err)
		} else {
			defer client.Close()
			consumer = client
		}
	} else {
		logger.Info("AMQP disabled, running reconcile loop only")
	}

	w := worker.NewSyncWorker(repo, mirror, worker.Config{
		BatchSize:    cfg.SyncBatchSize,
		SyncInterval: cfg.SyncInterval,
	}, logger)

	start := time.Now()
	err = w.Run(ctx, consumer)
	logger.Info("Worker shutdown complete", log.FieldDurationHuman, time.Since(start).String())
	return err
}

func newMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (worker.Mirror, error) {
	if !cfg.MirrorEnabled() {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
		return memory.New(), nil
	}

	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return client, nil
}
