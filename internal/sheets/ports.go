// Package sheets declares the spreadsheet mirror the sync worker writes to.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// AppendTransaction adds one row and returns a reference to it.
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// TransactionDeleter removes the row of a transaction. A missing row is not an error.
	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// TransactionLister reads the mirrored rows back.
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	Mirror interface {
		TransactionWriter
		TransactionDeleter
		TransactionLister
	}
)
