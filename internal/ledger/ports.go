// Package ledger declares the ports the aggregation engine and the
// transaction service consume. Storage adapters implement them.
package ledger

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// Aggregator answers filtered sums over a date range. Empty results are a
	// zero sum, never an error.
	Aggregator interface {
		SumAmount(ctx context.Context, kind core.Kind, r core.DateRange) (core.Money, error)
		SumByCategory(ctx context.Context, kind core.Kind, r core.DateRange) ([]core.CategoryAmount, error)
	}

	// HistoryReader scans transactions by date descending, newest id first on ties.
	HistoryReader interface {
		History(ctx context.Context, limit core.Limit) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		Create(ctx context.Context, t core.Transaction) (id int64, err error)
	}

	// TransactionReader returns apperrors.ErrNotFound for unknown ids.
	TransactionReader interface {
		Get(ctx context.Context, id int64) (core.Transaction, error)
	}

	// TransactionDeleter reports whether a row was removed.
	TransactionDeleter interface {
		Delete(ctx context.Context, id int64) (bool, error)
	}

	// CategoryLister returns the distinct labels in use, sorted.
	CategoryLister interface {
		Categories(ctx context.Context) ([]string, error)
	}

	// Reader is everything the aggregation engine needs.
	Reader interface {
		Aggregator
		HistoryReader
	}

	Store interface {
		Reader
		TransactionWriter
		TransactionReader
		TransactionDeleter
		CategoryLister
		Close() error
	}
)
