package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthlyBalance is the income/expense summary of one period.
type MonthlyBalance struct {
	Period   Period `json:"period"`
	Income   Money  `json:"income"`
	Expenses Money  `json:"expenses"`
	Balance  Money  `json:"balance"`
}

// CategoryShare is one entry of an expense breakdown.
type CategoryShare struct {
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Breakdown maps category label to its share of the period's expenses.
// Iteration order carries no meaning.
type Breakdown map[string]CategoryShare

// HistoryRecord is the flat view of a transaction used by history and export.
type HistoryRecord struct {
	ID          int64   `json:"id"`
	Date        Date    `json:"date"`
	Category    string  `json:"category"`
	Description *string `json:"description"`
	Amount      Money   `json:"amount"`
	IsIncome    bool    `json:"is_income"`
}

// TrendPoint is one month of a trend series.
type TrendPoint struct {
	Period   Period `json:"period"`
	Label    string `json:"month"`
	Income   Money  `json:"income"`
	Expenses Money  `json:"expenses"`
	Balance  Money  `json:"balance"`
}

// RecordOf flattens a transaction for display.
func RecordOf(t Transaction) HistoryRecord {
	var desc *string
	if t.Description != "" {
		d := t.Description
		desc = &d
	}
	return HistoryRecord{
		ID:          t.ID,
		Date:        t.Date,
		Category:    t.Category,
		Description: desc,
		Amount:      t.Amount,
		IsIncome:    t.Kind.IsIncome(),
	}
}
