// Package export writes the ledger history to CSV.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"fintrack/internal/core"
)

// ErrNothingToExport is returned when the ledger holds no transactions.
var ErrNothingToExport = errors.New("no transactions to export")

// Header is the first row of every export.
var Header = []string{"id", "date", "category", "description", "amount", "is_income"}

// HistorySource is the slice of the aggregation engine the exporter reads.
type HistorySource interface {
	TransactionHistory(ctx context.Context, limit core.Limit) ([]core.HistoryRecord, error)
}

// WriteCSV writes the header and one row per record. Absent descriptions are
// empty cells; amounts carry two decimals.
func WriteCSV(w io.Writer, records []core.HistoryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		desc := ""
		if r.Description != nil {
			desc = *r.Description
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.Date.String(),
			r.Category,
			desc,
			r.Amount.String(),
			strconv.FormatBool(r.IsIncome),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the full history to w and returns the number of rows.
func Export(ctx context.Context, src HistorySource, w io.Writer) (int, error) {
	records, err := src.TransactionHistory(ctx, core.Unbounded)
	if err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}
	if len(records) == 0 {
		return 0, ErrNothingToExport
	}
	if err := WriteCSV(w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ExportFile writes the full history to path. The file is only created when
// there is something to write.
func ExportFile(ctx context.Context, src HistorySource, path string) (int, error) {
	records, err := src.TransactionHistory(ctx, core.Unbounded)
	if err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}
	if len(records) == 0 {
		return 0, ErrNothingToExport
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return 0, fmt.Errorf("write export file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close export file %s: %w", path, err)
	}
	return len(records), nil
}
