package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/apperrors"
	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

const busyTimeoutMillis = 5000

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// PendingSync is the minimal data a sync message needs.
type PendingSync struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", dbPath, busyTimeoutMillis)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create implements ledger.TransactionWriter
func (r *SQLiteRepository) Create(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("invalid transaction: %w", err)
	}

	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Description: sql.NullString{String: t.Description, Valid: t.Description != ""},
		OccurredOn:  t.Date.String(),
		IsIncome:    boolToInt(t.Kind.IsIncome()),
	})
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String(),
		"kind", t.Kind.String())

	return id, nil
}

// Get implements ledger.TransactionReader
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, apperrors.NotFound("get transaction", "transaction %d", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return toCore(row)
}

// Delete implements ledger.TransactionDeleter
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	}
	return n > 0, nil
}

// SumAmount implements ledger.Aggregator
func (r *SQLiteRepository) SumAmount(ctx context.Context, kind core.Kind, dr core.DateRange) (core.Money, error) {
	total, err := r.queries.SumAmount(ctx, SumAmountParams{
		IsIncome:     boolToInt(kind.IsIncome()),
		OccurredOn:   dr.From.String(),
		OccurredOn_2: dr.Last().String(),
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s amounts: %w", kind, err)
	}
	return core.Money{Cents: total}, nil
}

// SumByCategory implements ledger.Aggregator
func (r *SQLiteRepository) SumByCategory(ctx context.Context, kind core.Kind, dr core.DateRange) ([]core.CategoryAmount, error) {
	rows, err := r.queries.SumByCategory(ctx, SumByCategoryParams{
		IsIncome:     boolToInt(kind.IsIncome()),
		OccurredOn:   dr.From.String(),
		OccurredOn_2: dr.Last().String(),
	})
	if err != nil {
		return nil, fmt.Errorf("sum %s amounts by category: %w", kind, err)
	}

	out := make([]core.CategoryAmount, len(rows))
	for i, row := range rows {
		out[i] = core.CategoryAmount{Name: row.Category, Amount: core.Money{Cents: row.Total}}
	}
	return out, nil
}

// History implements ledger.HistoryReader
func (r *SQLiteRepository) History(ctx context.Context, limit core.Limit) ([]core.Transaction, error) {
	var (
		rows []Transaction
		err  error
	)
	if limit.IsUnbounded() {
		rows, err = r.queries.ListTransactions(ctx)
	} else {
		rows, err = r.queries.ListRecentTransactions(ctx, int64(limit.N()))
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Categories implements ledger.CategoryLister
func (r *SQLiteRepository) Categories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	if cats == nil {
		cats = []string{}
	}
	return cats, nil
}

// GetPendingSync returns transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.queries.GetPendingSyncTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}

	out := make([]PendingSync, len(rows))
	for i, row := range rows {
		out[i] = PendingSync{ID: row.ID, Version: row.Version, CreatedAt: row.CreatedAt.Time}
	}
	return out, nil
}

// MarkSynced marks a transaction as mirrored
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSynced(ctx, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.DebugContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a transaction as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// RequeueSyncErrors moves failed rows back to pending with a bumped version,
// so redelivery is not mistaken for a duplicate.
func (r *SQLiteRepository) RequeueSyncErrors(ctx context.Context) (int64, error) {
	n, err := r.queries.RequeueSyncErrors(ctx)
	if err != nil {
		return 0, fmt.Errorf("requeue sync errors: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Failed transactions requeued for sync", "count", n)
	}
	return n, nil
}

// SyncStatus returns the mirror state of a transaction.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, id int64) (string, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NotFound("sync status", "transaction %d", id)
	}
	if err != nil {
		return "", fmt.Errorf("get transaction by id: %w", err)
	}
	return row.SyncStatus, nil
}

func toCore(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.OccurredOn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad date %q: %w", row.ID, row.OccurredOn, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Date:        date,
		Category:    row.Category,
		Description: row.Description.String,
		Amount:      core.Money{Cents: row.AmountCents},
		Kind:        core.KindOf(row.IsIncome != 0),
	}, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
