// Query methods for queries/transactions.sql, kept in the layout sqlc emits
// from sqlc.yaml. Edit both files together.

package storage

import (
	"context"
	"database/sql"
)

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (amount_cents, category, description, occurred_on, is_income)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type CreateTransactionParams struct {
	AmountCents int64          `json:"amount_cents"`
	Category    string         `json:"category"`
	Description sql.NullString `json:"description"`
	OccurredOn  string         `json:"occurred_on"`
	IsIncome    int64          `json:"is_income"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.AmountCents,
		arg.Category,
		arg.Description,
		arg.OccurredOn,
		arg.IsIncome,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getCategories = `-- name: GetCategories :many
SELECT DISTINCT category FROM transactions ORDER BY category
`

func (q *Queries) GetCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		items = append(items, category)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPendingSyncTransactions = `-- name: GetPendingSyncTransactions :many
SELECT id, version, created_at
FROM transactions
WHERE sync_status = 'pending'
ORDER BY created_at, id
LIMIT ?
`

type GetPendingSyncTransactionsRow struct {
	ID        int64        `json:"id"`
	Version   int64        `json:"version"`
	CreatedAt sql.NullTime `json:"created_at"`
}

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, limit int64) ([]GetPendingSyncTransactionsRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncTransactions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPendingSyncTransactionsRow
	for rows.Next() {
		var i GetPendingSyncTransactionsRow
		if err := rows.Scan(&i.ID, &i.Version, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = `-- name: GetTransaction :one
SELECT id, amount_cents, category, description, occurred_on, is_income, created_at, sync_status, synced_at, version
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.AmountCents,
		&i.Category,
		&i.Description,
		&i.OccurredOn,
		&i.IsIncome,
		&i.CreatedAt,
		&i.SyncStatus,
		&i.SyncedAt,
		&i.Version,
	)
	return i, err
}

const listRecentTransactions = `-- name: ListRecentTransactions :many
SELECT id, amount_cents, category, description, occurred_on, is_income, created_at, sync_status, synced_at, version
FROM transactions
ORDER BY occurred_on DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentTransactions(ctx context.Context, limit int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecentTransactions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AmountCents,
			&i.Category,
			&i.Description,
			&i.OccurredOn,
			&i.IsIncome,
			&i.CreatedAt,
			&i.SyncStatus,
			&i.SyncedAt,
			&i.Version,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, amount_cents, category, description, occurred_on, is_income, created_at, sync_status, synced_at, version
FROM transactions
ORDER BY occurred_on DESC, id DESC
`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AmountCents,
			&i.Category,
			&i.Description,
			&i.OccurredOn,
			&i.IsIncome,
			&i.CreatedAt,
			&i.SyncStatus,
			&i.SyncedAt,
			&i.Version,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markTransactionSyncError = `-- name: MarkTransactionSyncError :exec
UPDATE transactions
SET sync_status = 'error'
WHERE id = ?
`

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionSyncError, id)
	return err
}

const markTransactionSynced = `-- name: MarkTransactionSynced :exec
UPDATE transactions
SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP
WHERE id = ?
`

func (q *Queries) MarkTransactionSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionSynced, id)
	return err
}

const requeueSyncErrors = `-- name: RequeueSyncErrors :execrows
UPDATE transactions
SET sync_status = 'pending', version = version + 1
WHERE sync_status = 'error'
`

func (q *Queries) RequeueSyncErrors(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, requeueSyncErrors)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumAmount = `-- name: SumAmount :one
SELECT CAST(COALESCE(SUM(amount_cents), 0) AS INTEGER) AS total
FROM transactions
WHERE is_income = ? AND occurred_on >= ? AND occurred_on <= ?
`

type SumAmountParams struct {
	IsIncome     int64  `json:"is_income"`
	OccurredOn   string `json:"occurred_on"`
	OccurredOn_2 string `json:"occurred_on_2"`
}

func (q *Queries) SumAmount(ctx context.Context, arg SumAmountParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumAmount, arg.IsIncome, arg.OccurredOn, arg.OccurredOn_2)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const sumByCategory = `-- name: SumByCategory :many
SELECT category, CAST(COALESCE(SUM(amount_cents), 0) AS INTEGER) AS total
FROM transactions
WHERE is_income = ? AND occurred_on >= ? AND occurred_on <= ?
GROUP BY category
ORDER BY total DESC, category
`

type SumByCategoryParams struct {
	IsIncome     int64  `json:"is_income"`
	OccurredOn   string `json:"occurred_on"`
	OccurredOn_2 string `json:"occurred_on_2"`
}

type SumByCategoryRow struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

func (q *Queries) SumByCategory(ctx context.Context, arg SumByCategoryParams) ([]SumByCategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, sumByCategory, arg.IsIncome, arg.OccurredOn, arg.OccurredOn_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumByCategoryRow
	for rows.Next() {
		var i SumByCategoryRow
		if err := rows.Scan(&i.Category, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
