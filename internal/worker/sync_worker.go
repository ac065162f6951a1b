// Package worker mirrors ledger changes to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/apperrors"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// Store is the slice of the SQLite repository the worker needs.
type Store interface {
	Get(ctx context.Context, id int64) (core.Transaction, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// Consumer delivers queued messages until ctx ends.
type Consumer interface {
	ConsumeMessages(ctx context.Context, onSync amqp.SyncHandler, onDelete amqp.DeleteHandler) error
}

// Mirror is where transactions are copied to.
type Mirror interface {
	sheets.TransactionWriter
	sheets.TransactionDeleter
}

type Config struct {
	BatchSize    int
	SyncInterval time.Duration
	DedupeTTL    time.Duration
	DedupeSize   int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    10,
		SyncInterval: 30 * time.Second,
		DedupeTTL:    time.Hour,
		DedupeSize:   1000,
	}
}

// SyncWorker copies transactions to the mirror, once per (id, version).
type SyncWorker struct {
	store  Store
	mirror Mirror
	cfg    Config
	seen   *cache.LRUCache[struct{}]
	caches *cache.Manager
	logger *log.Logger
}

func NewSyncWorker(store Store, mirror Mirror, cfg Config, logger *log.Logger) *SyncWorker {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = def.DedupeTTL
	}
	if cfg.DedupeSize <= 0 {
		cfg.DedupeSize = def.DedupeSize
	}
	if logger == nil {
		logger = log.Discard()
	}

	seen := cache.NewLRUCache[struct{}](cfg.DedupeSize, cfg.DedupeTTL)
	caches := cache.NewManager()
	caches.Register(seen)

	return &SyncWorker{
		store:  store,
		mirror: mirror,
		cfg:    cfg,
		seen:   seen,
		caches: caches,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

func dedupeKey(id, version int64) string {
	return fmt.Sprintf("%d:%d", id, version)
}

// HandleSyncMessage mirrors the transaction named by msg. Redeliveries of an
// already mirrored (id, version) and messages for deleted rows are acked
// without work.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.DebugContext(ctx, "Processing sync message",
		log.FieldTransactionID, msg.ID,
		"version", msg.Version)
	_, err := w.sync(ctx, msg.ID, msg.Version)
	return err
}

// HandleDeleteMessage removes the transaction's row from the mirror.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	if err := w.mirror.DeleteTransaction(ctx, msg.ID); err != nil {
		w.logger.ErrorContext(ctx, "Failed to delete transaction from mirror",
			log.FieldTransactionID, msg.ID,
			log.FieldError, err)
		return fmt.Errorf("delete from mirror: %w", err)
	}
	w.logger.InfoContext(ctx, "Transaction removed from mirror", log.FieldTransactionID, msg.ID)
	return nil
}

// ProcessPending mirrors one batch of rows still marked pending, covering
// messages that were never published or got lost. It returns how many rows
// were mirrored.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.GetPendingSync(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		done, err := w.sync(ctx, p.ID, p.Version)
		if err != nil {
			// Already marked; the rest of the batch still gets its turn.
			continue
		}
		if done {
			synced++
		}
	}
	return synced, nil
}

// sync reports whether a row was appended to the mirror.
func (w *SyncWorker) sync(ctx context.Context, id, version int64) (bool, error) {
	key := dedupeKey(id, version)
	// Claiming the key up front keeps the consumer and the reconcile loop
	// from appending the same row twice.
	if !w.seen.SetIfAbsent(key, struct{}{}) {
		w.logger.DebugContext(ctx, "Skipping already processed transaction",
			log.FieldTransactionID, id,
			"version", version)
		return false, nil
	}

	t, err := w.store.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		w.logger.WarnContext(ctx, "Transaction no longer exists, skipping sync", log.FieldTransactionID, id)
		return false, nil
	}
	if err != nil {
		w.seen.Delete(key)
		return false, fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.mirror.AppendTransaction(ctx, t)
	if err != nil {
		w.seen.Delete(key)
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldTransactionID, id,
				log.FieldError, markErr)
		}
		w.logger.ErrorContext(ctx, "Failed to append transaction to mirror",
			log.FieldTransactionID, id,
			log.FieldError, err)
		return false, fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id); err != nil {
		// The row is in the mirror; a retry would duplicate it.
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldTransactionID, id,
			log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Transaction mirrored",
		log.FieldTransactionID, id,
		"version", version,
		"row_ref", ref,
		log.FieldAmountCents, t.Amount.Cents)
	return true, nil
}

// Run consumes messages (when consumer is not nil), reconciles pending rows
// every SyncInterval and expires dedupe entries until ctx ends. A clean
// shutdown returns nil.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeMessages(gctx, w.HandleSyncMessage, w.HandleDeleteMessage)
		})
	}

	g.Go(func() error {
		return w.reconcileLoop(gctx)
	})

	g.Go(func() error {
		return w.caches.Run(gctx, w.cfg.DedupeTTL/4)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (w *SyncWorker) reconcileLoop(ctx context.Context) error {
	w.reconcile(ctx)

	ticker := time.NewTicker(w.cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

func (w *SyncWorker) reconcile(ctx context.Context) {
	n, err := w.ProcessPending(ctx)
	if err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Reconcile pass failed", log.FieldError, err)
		return
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Reconcile pass complete", "synced", n)
	}
}
