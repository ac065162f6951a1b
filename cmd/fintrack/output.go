package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"fintrack/internal/core"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func kindLabel(isIncome bool) string {
	if isIncome {
		return "income"
	}
	return "expense"
}

func printRecords(w io.Writer, records []core.HistoryRecord) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tDESCRIPTION\tAMOUNT\tKIND")
	for _, r := range records {
		desc := ""
		if r.Description != nil {
			desc = *r.Description
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.Category, desc, r.Amount, kindLabel(r.IsIncome))
	}
	return tw.Flush()
}

func printBalance(w io.Writer, mb core.MonthlyBalance) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Period\t%s\n", mb.Period)
	fmt.Fprintf(tw, "Income\t%s\n", mb.Income)
	fmt.Fprintf(tw, "Expenses\t%s\n", mb.Expenses)
	fmt.Fprintf(tw, "Balance\t%s\n", mb.Balance)
	return tw.Flush()
}

type breakdownRow struct {
	Category string
	core.CategoryShare
}

// sortedBreakdown orders categories by amount, largest first, then by name.
func sortedBreakdown(b core.Breakdown) []breakdownRow {
	rows := make([]breakdownRow, 0, len(b))
	for name, share := range b {
		rows = append(rows, breakdownRow{Category: name, CategoryShare: share})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Amount.Cents != rows[j].Amount.Cents {
			return rows[i].Amount.Cents > rows[j].Amount.Cents
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}

func printBreakdown(w io.Writer, b core.Breakdown) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE")
	for _, r := range sortedBreakdown(b) {
		fmt.Fprintf(tw, "%s\t%s\t%.2f%%\n", r.Category, r.Amount, r.Percentage)
	}
	return tw.Flush()
}

func printTrend(w io.Writer, points []core.TrendPoint) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "MONTH\tPERIOD\tINCOME\tEXPENSES\tBALANCE")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Label, p.Period, p.Income, p.Expenses, p.Balance)
	}
	return tw.Flush()
}
