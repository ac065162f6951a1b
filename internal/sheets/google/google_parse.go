package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Header is the first row of the mirror sheet.
var Header = []any{"ID", "Date", "Category", "Description", "Amount", "Type"}

const (
	labelIncome  = "Income"
	labelExpense = "Expense"
)

// transactionRow lays a transaction out as ID | Date | Category | Description | Amount | Type.
func transactionRow(t core.Transaction) []any {
	label := labelExpense
	if t.Kind.IsIncome() {
		label = labelIncome
	}
	return []any{t.ID, t.Date.String(), t.Category, t.Description, t.Amount.Float(), label}
}

// parseRow reads a row written by transactionRow. Rows whose ID cell is not a
// number (the header, notes) report ok=false.
func parseRow(row []any) (t core.Transaction, ok bool, err error) {
	cols := toStrings(row)
	if len(cols) < 6 {
		return core.Transaction{}, false, nil
	}
	id, convErr := strconv.ParseInt(cols[0], 10, 64)
	if convErr != nil {
		return core.Transaction{}, false, nil
	}

	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("row %d: date %q: %w", id, cols[1], err)
	}
	cents, err := parseCents(cols[4])
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("row %d: amount %q: %w", id, cols[4], err)
	}
	kind := core.Expense
	switch {
	case strings.EqualFold(cols[5], labelIncome):
		kind = core.Income
	case strings.EqualFold(cols[5], labelExpense):
	default:
		return core.Transaction{}, false, fmt.Errorf("row %d: unknown type %q", id, cols[5])
	}

	return core.Transaction{
		ID:          id,
		Date:        date,
		Category:    cols[2],
		Description: cols[3],
		Amount:      core.Money{Cents: cents},
		Kind:        kind,
	}, true, nil
}

// parseCents accepts what Sheets hands back for a number cell: "12.3", "12,30"
// or a plain float.
func parseCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, core.ErrNegativeAmount
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// rowsWithID returns the 0-based indexes of rows whose first cell equals id,
// last first so deletions do not shift the remaining indexes.
func rowsWithID(values [][]any, id int64) []int64 {
	want := strconv.FormatInt(id, 10)
	var out []int64
	for i := len(values) - 1; i >= 0; i-- {
		if len(values[i]) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(values[i][0])) == want {
			out = append(out, int64(i))
		}
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
