package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"fintrack/internal/apperrors"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// Ensure interface conformance
var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Transaction
}

// New builds a store from test fixtures and panics if one is invalid.
func New(seed ...core.Transaction) *Store {
	s, err := newSeeded(seed)
	if err != nil {
		panic(err)
	}
	return s
}

// NewFromFile seeds the store from a CSV file in the export format. A missing
// file yields an empty store. Any unreadable or invalid row fails the load.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Store{}, nil
		}
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	txs, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	s, err := newSeeded(txs)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	return s, nil
}

// newSeeded keeps positive seed ids and numbers the rest after the highest one.
func newSeeded(seed []core.Transaction) (*Store, error) {
	s := &Store{items: make([]core.Transaction, 0, len(seed))}
	seen := make(map[int64]struct{}, len(seed))
	for i, t := range seed {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		if t.ID <= 0 {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("transaction %d: duplicate id %d", i+1, t.ID)
		}
		seen[t.ID] = struct{}{}
		s.nextID = max(s.nextID, t.ID)
	}
	for _, t := range seed {
		if t.ID <= 0 {
			s.nextID++
			t.ID = s.nextID
		}
		s.items = append(s.items, t)
	}
	return s, nil
}

// Create stores the transaction and assigns the next id.
func (s *Store) Create(_ context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.items = append(s.items, t)
	return t.ID, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, apperrors.NotFound("get transaction", "transaction %d", id)
}

func (s *Store) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SumAmount(_ context.Context, kind core.Kind, r core.DateRange) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, t := range s.items {
		if t.Kind == kind && r.Contains(t.Date) {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

// SumByCategory groups in first-seen order.
func (s *Store) SumByCategory(_ context.Context, kind core.Kind, r core.DateRange) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := map[string]int{}
	var out []core.CategoryAmount
	for _, t := range s.items {
		if t.Kind != kind || !r.Contains(t.Date) {
			continue
		}
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, core.CategoryAmount{Name: t.Category})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out, nil
}

func (s *Store) History(_ context.Context, limit core.Limit) ([]core.Transaction, error) {
	s.mu.Lock()
	out := append([]core.Transaction(nil), s.items...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	if !limit.IsUnbounded() && len(out) > limit.N() {
		out = out[:limit.N()]
	}
	return out, nil
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, t := range s.items {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error { return nil }

// readCSV parses rows written by the exporter:
// id,date,category,description,amount,is_income
func readCSV(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "id") {
			continue
		}
		var id int64
		if raw := strings.TrimSpace(row[0]); raw != "" {
			id, err = strconv.ParseInt(raw, 10, 64)
			if err != nil || id < 1 {
				return nil, fmt.Errorf("row %d: invalid id %q", i+1, raw)
			}
		}
		date, err := core.ParseDate(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: date: %w", i+1, err)
		}
		var amount core.Money
		if strings.TrimSpace(row[4]) != "0" && strings.TrimSpace(row[4]) != "0.00" {
			amount, err = core.ParseAmount(row[4])
			if err != nil {
				return nil, fmt.Errorf("row %d: amount: %w", i+1, err)
			}
		}
		isIncome, err := strconv.ParseBool(strings.TrimSpace(row[5]))
		if err != nil {
			return nil, fmt.Errorf("row %d: is_income: %w", i+1, err)
		}
		t := core.Transaction{
			ID:          id,
			Date:        date,
			Category:    strings.TrimSpace(row[2]),
			Description: row[3],
			Amount:      amount,
			Kind:        core.KindOf(isIncome),
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}
