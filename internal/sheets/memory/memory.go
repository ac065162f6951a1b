// Package memory is an in-process spreadsheet mirror for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

type Mirror struct {
	mu   sync.Mutex
	rows []core.Transaction
}

func New() *Mirror {
	return &Mirror{}
}

// AppendTransaction stores a row and returns a synthetic row reference.
func (m *Mirror) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, t)
	// Row 1 is the header.
	return fmt.Sprintf("mem!A%d", len(m.rows)+1), nil
}

// DeleteTransaction drops every row carrying id.
func (m *Mirror) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = slices.DeleteFunc(m.rows, func(t core.Transaction) bool { return t.ID == id })
	return nil
}

func (m *Mirror) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...), nil
}

// Len returns the number of mirrored rows.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
