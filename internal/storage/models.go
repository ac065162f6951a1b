package storage

import (
	"database/sql"
)

type Transaction struct {
	ID          int64          `json:"id"`
	AmountCents int64          `json:"amount_cents"`
	Category    string         `json:"category"`
	Description sql.NullString `json:"description"`
	OccurredOn  string         `json:"occurred_on"`
	IsIncome    int64          `json:"is_income"`
	CreatedAt   sql.NullTime   `json:"created_at"`
	SyncStatus  string         `json:"sync_status"`
	SyncedAt    sql.NullTime   `json:"synced_at"`
	Version     int64          `json:"version"`
}
