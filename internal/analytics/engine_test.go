package analytics_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fintrack/internal/analytics"
	"fintrack/internal/apperrors"
	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
)

func tx(y, m, d int, cents int64, cat string, kind core.Kind) core.Transaction {
	return core.Transaction{Date: core.NewDate(y, m, d), Category: cat, Amount: core.Money{Cents: cents}, Kind: kind}
}

func fixedClock(y, m, d int) func() time.Time {
	return func() time.Time { return time.Date(y, time.Month(m), d, 15, 30, 0, 0, time.Local) }
}

func marchStore() *memory.Store {
	return memory.New(
		tx(2024, 3, 5, 10000, "Salary", core.Income),
		tx(2024, 3, 10, 4000, "Food", core.Expense),
		tx(2024, 3, 12, 1000, "Food", core.Expense),
		tx(2024, 3, 15, 2000, "Transport", core.Expense),
	)
}

func TestMonthlyBalance_Example(t *testing.T) {
	e := analytics.NewEngine(marchStore())

	mb, err := e.MonthlyBalance(context.Background(), core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), mb.Income.Cents)
	assert.Equal(t, int64(7000), mb.Expenses.Cents)
	assert.Equal(t, int64(3000), mb.Balance.Cents)
}

func TestMonthlyBalance_EmptyPeriodIsZero(t *testing.T) {
	e := analytics.NewEngine(marchStore())

	mb, err := e.MonthlyBalance(context.Background(), core.Period{Year: 2023, Month: 7})
	require.NoError(t, err)
	assert.True(t, mb.Income.IsZero())
	assert.True(t, mb.Expenses.IsZero())
	assert.True(t, mb.Balance.IsZero())
}

func TestMonthlyBalance_InvariantsHoldForMixedData(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	amounts := []int64{0, 1, 99, 12345, 500, 7, 100000}
	for i, a := range amounts {
		kind := core.Expense
		if i%3 == 0 {
			kind = core.Income
		}
		_, err := store.Create(ctx, tx(2024, 5, i+1, a, "Misc", kind))
		require.NoError(t, err)
	}

	mb, err := analytics.NewEngine(store).MonthlyBalance(ctx, core.Period{Year: 2024, Month: 5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mb.Income.Cents, int64(0))
	assert.GreaterOrEqual(t, mb.Expenses.Cents, int64(0))
	assert.Equal(t, mb.Income.Cents-mb.Expenses.Cents, mb.Balance.Cents)
}

func TestMonthlyBalance_RejectsInvalidMonth(t *testing.T) {
	e := analytics.NewEngine(marchStore())
	for _, m := range []int{0, 13, -4} {
		_, err := e.MonthlyBalance(context.Background(), core.Period{Year: 2024, Month: m})
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument, "month %d", m)
	}
}

func TestCurrentMonthlyBalance_UsesClock(t *testing.T) {
	e := analytics.NewEngine(marchStore(), analytics.WithClock(fixedClock(2024, 3, 31)))

	mb, err := e.CurrentMonthlyBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.Period{Year: 2024, Month: 3}, mb.Period)
	assert.Equal(t, int64(3000), mb.Balance.Cents)
}

func TestExpenseBreakdown_Example(t *testing.T) {
	e := analytics.NewEngine(marchStore())

	b, err := e.ExpenseBreakdown(context.Background(), core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Len(t, b, 2)

	assert.Equal(t, int64(5000), b["Food"].Amount.Cents)
	assert.InDelta(t, 71.43, b["Food"].Percentage, 0.01)
	assert.Equal(t, int64(2000), b["Transport"].Amount.Cents)
	assert.InDelta(t, 28.57, b["Transport"].Percentage, 0.01)

	_, hasIncome := b["Salary"]
	assert.False(t, hasIncome, "income categories must not appear")
}

func TestExpenseBreakdown_PercentagesSumTo100(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	cats := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, c := range cats {
		_, err := store.Create(ctx, tx(2025, 1, i+1, int64(i*i*37+13), c, core.Expense))
		require.NoError(t, err)
	}

	b, err := analytics.NewEngine(store).ExpenseBreakdown(ctx, core.Period{Year: 2025, Month: 1})
	require.NoError(t, err)

	var sum float64
	for _, share := range b {
		sum += share.Percentage
	}
	assert.LessOrEqual(t, math.Abs(sum-100)/100, 1e-6)
}

func TestExpenseBreakdown_EmptyPeriod(t *testing.T) {
	e := analytics.NewEngine(memory.New(tx(2024, 3, 5, 10000, "Salary", core.Income)))

	b, err := e.ExpenseBreakdown(context.Background(), core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestExpenseBreakdown_KeepsZeroAmountCategory(t *testing.T) {
	e := analytics.NewEngine(memory.New(
		tx(2024, 3, 1, 0, "Freebies", core.Expense),
		tx(2024, 3, 2, 2500, "Food", core.Expense),
	))

	b, err := e.ExpenseBreakdown(context.Background(), core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Contains(t, b, "Freebies")
	assert.Zero(t, b["Freebies"].Percentage)
	assert.InDelta(t, 100.0, b["Food"].Percentage, 1e-9)
}

func TestExpenseBreakdown_AllZeroAmountsDoNotDivideByZero(t *testing.T) {
	e := analytics.NewEngine(memory.New(tx(2024, 3, 1, 0, "Freebies", core.Expense)))

	b, err := e.ExpenseBreakdown(context.Background(), core.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Contains(t, b, "Freebies")
	assert.Zero(t, b["Freebies"].Percentage)
	assert.False(t, math.IsNaN(b["Freebies"].Percentage))
}

func TestTransactionHistory(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	for i := 1; i <= 60; i++ {
		_, err := store.Create(ctx, tx(2024, 1+(i%12), 1+(i%28), int64(i), "Misc", core.Expense))
		require.NoError(t, err)
	}
	e := analytics.NewEngine(store)

	def, err := e.TransactionHistory(ctx, core.DefaultLimit())
	require.NoError(t, err)
	assert.Len(t, def, 50)

	five, err := e.TransactionHistory(ctx, core.LimitOf(5))
	require.NoError(t, err)
	assert.Len(t, five, 5)

	all, err := e.TransactionHistory(ctx, core.Unbounded)
	require.NoError(t, err)
	assert.Len(t, all, 60)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Date.After(all[i-1].Date.Time), "row %d is newer than row %d", i, i-1)
	}

	_, err = e.TransactionHistory(ctx, core.LimitOf(-1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestTransactionHistory_RecordShape(t *testing.T) {
	store := memory.New(
		core.Transaction{Date: core.NewDate(2024, 3, 5), Category: "Salary", Amount: core.Money{Cents: 10000}, Kind: core.Income},
		core.Transaction{Date: core.NewDate(2024, 3, 6), Category: "Food", Description: "lunch", Amount: core.Money{Cents: 1250}, Kind: core.Expense},
	)

	recs, err := analytics.NewEngine(store).TransactionHistory(context.Background(), core.Unbounded)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, int64(2), recs[0].ID)
	require.NotNil(t, recs[0].Description)
	assert.Equal(t, "lunch", *recs[0].Description)
	assert.False(t, recs[0].IsIncome)
	assert.Nil(t, recs[1].Description)
	assert.True(t, recs[1].IsIncome)
}

func TestMonthlyTrend_DefaultWindow(t *testing.T) {
	e := analytics.NewEngine(marchStore(), analytics.WithClock(fixedClock(2024, 3, 20)))

	points, err := e.MonthlyTrend(context.Background(), analytics.DefaultTrendMonths)
	require.NoError(t, err)
	require.Len(t, points, 6)

	for i := 1; i < len(points); i++ {
		assert.True(t, points[i-1].Period.Before(points[i].Period), "points must be strictly chronological")
	}
	last := points[len(points)-1]
	assert.Equal(t, core.Period{Year: 2024, Month: 3}, last.Period)
	assert.Equal(t, "Mar", last.Label)
	assert.Equal(t, int64(3000), last.Balance.Cents)
	assert.Equal(t, core.Period{Year: 2023, Month: 10}, points[0].Period)
}

func TestMonthlyTrend_YearBoundary(t *testing.T) {
	store := memory.New(
		tx(2024, 11, 3, 100000, "Salary", core.Income),
		tx(2024, 11, 20, 30000, "Rent", core.Expense),
		tx(2024, 12, 3, 100000, "Salary", core.Income),
		tx(2024, 12, 24, 45000, "Gifts", core.Expense),
		tx(2025, 1, 3, 100000, "Salary", core.Income),
		tx(2025, 1, 15, 20000, "Food", core.Expense),
		tx(2025, 2, 3, 110000, "Salary", core.Income),
		tx(2025, 2, 10, 5000, "Food", core.Expense),
		tx(2024, 10, 31, 99999, "Old", core.Expense),
		tx(2025, 3, 1, 99999, "Future", core.Expense),
	)
	e := analytics.NewEngine(store, analytics.WithClock(fixedClock(2025, 2, 14)))

	points, err := e.MonthlyTrend(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, points, 4)

	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"Nov", "Dec", "Jan", "Feb"}, labels)

	assert.Equal(t, core.Period{Year: 2024, Month: 11}, points[0].Period)
	assert.Equal(t, core.Period{Year: 2025, Month: 2}, points[3].Period)

	wantExpenses := []int64{30000, 45000, 20000, 5000}
	wantBalance := []int64{70000, 55000, 80000, 105000}
	for i := range points {
		assert.Equal(t, wantExpenses[i], points[i].Expenses.Cents, "expenses of %s", labels[i])
		assert.Equal(t, wantBalance[i], points[i].Balance.Cents, "balance of %s", labels[i])
	}
}

func TestMonthlyTrendAt_LongWindowCrossesSeveralYears(t *testing.T) {
	e := analytics.NewEngine(memory.New())
	ref := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	points, err := e.MonthlyTrendAt(context.Background(), ref, 25)
	require.NoError(t, err)
	require.Len(t, points, 25)
	assert.Equal(t, core.Period{Year: 2023, Month: 1}, points[0].Period)
	assert.Equal(t, core.Period{Year: 2025, Month: 1}, points[24].Period)
}

func TestMonthlyTrend_RejectsNonPositiveMonths(t *testing.T) {
	e := analytics.NewEngine(memory.New())
	_, err := e.MonthlyTrend(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestMonthlyTrend_RejectsOversizedWindow(t *testing.T) {
	e := analytics.NewEngine(memory.New())
	ref := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, months := range []int{analytics.MaxTrendMonths + 1, 1 << 60, math.MaxInt} {
		points, err := e.MonthlyTrendAt(context.Background(), ref, months)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument, "months=%d", months)
		assert.Nil(t, points)
	}

	points, err := e.MonthlyTrendAt(context.Background(), ref, analytics.MaxTrendMonths)
	require.NoError(t, err)
	assert.Len(t, points, analytics.MaxTrendMonths)
}

func TestMonthlyTrendAt_RejectsWindowBeforeYearOne(t *testing.T) {
	e := analytics.NewEngine(memory.New())
	ref := time.Date(1, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := e.MonthlyTrendAt(context.Background(), ref, 4)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	points, err := e.MonthlyTrendAt(context.Background(), ref, 2)
	require.NoError(t, err)
	assert.Equal(t, core.Period{Year: 1, Month: 1}, points[0].Period)
}

// failingStore lets tests inject store failures.
type failingStore struct {
	mock.Mock
}

func (m *failingStore) SumAmount(ctx context.Context, kind core.Kind, r core.DateRange) (core.Money, error) {
	args := m.Called(ctx, kind, r)
	return args.Get(0).(core.Money), args.Error(1)
}

func (m *failingStore) SumByCategory(ctx context.Context, kind core.Kind, r core.DateRange) ([]core.CategoryAmount, error) {
	args := m.Called(ctx, kind, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.CategoryAmount), args.Error(1)
}

func (m *failingStore) History(ctx context.Context, limit core.Limit) ([]core.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.Transaction), args.Error(1)
}

func TestStoreFailuresAreTyped(t *testing.T) {
	cause := errors.New("database is locked")
	store := new(failingStore)
	store.On("SumAmount", mock.Anything, core.Income, mock.Anything).Return(core.Money{}, cause)
	store.On("SumByCategory", mock.Anything, core.Expense, mock.Anything).Return(nil, cause)
	store.On("History", mock.Anything, mock.Anything).Return(nil, cause)

	e := analytics.NewEngine(store, analytics.WithClock(fixedClock(2024, 3, 1)))
	ctx := context.Background()
	p := core.Period{Year: 2024, Month: 3}

	_, err := e.MonthlyBalance(ctx, p)
	assert.ErrorIs(t, err, apperrors.ErrStore)
	assert.ErrorIs(t, err, cause)

	_, err = e.ExpenseBreakdown(ctx, p)
	assert.ErrorIs(t, err, apperrors.ErrStore)

	_, err = e.TransactionHistory(ctx, core.Unbounded)
	assert.ErrorIs(t, err, apperrors.ErrStore)

	_, err = e.MonthlyTrend(ctx, 3)
	assert.ErrorIs(t, err, apperrors.ErrStore)

	// No retry: one income sum per failing call (balance and trend).
	store.AssertNumberOfCalls(t, "SumAmount", 2)
}

func TestEngineReflectsWritesBetweenCalls(t *testing.T) {
	store := marchStore()
	e := analytics.NewEngine(store)
	ctx := context.Background()
	p := core.Period{Year: 2024, Month: 3}

	before, err := e.MonthlyBalance(ctx, p)
	require.NoError(t, err)

	_, err = store.Create(ctx, tx(2024, 3, 30, 500, "Food", core.Expense))
	require.NoError(t, err)

	after, err := e.MonthlyBalance(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, before.Expenses.Cents+500, after.Expenses.Cents)
}
