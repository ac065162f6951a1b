// Package analytics derives read-only financial views from the ledger:
// monthly balances, expense breakdowns, the flat history and trend series.
//
// Every call queries the store afresh. Nothing is cached, so results always
// reflect the ledger at call time.
package analytics

import (
	"context"
	"slices"
	"time"

	"fintrack/internal/apperrors"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// DefaultTrendMonths is the trend window used when the caller does not choose.
const DefaultTrendMonths = 6

// MaxTrendMonths caps the trend window at one hundred years.
const MaxTrendMonths = 1200

type Engine struct {
	store  ledger.Reader
	now    func() time.Time
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the reference date source for the "current month" defaults.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.WithComponent(log.ComponentAnalytics)
		}
	}
}

func NewEngine(store ledger.Reader, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CurrentPeriod is the month containing the engine's reference date.
func (e *Engine) CurrentPeriod() core.Period {
	return core.PeriodOf(e.now())
}

// MonthlyBalance sums income and expenses for the period. Empty sides are zero.
func (e *Engine) MonthlyBalance(ctx context.Context, p core.Period) (core.MonthlyBalance, error) {
	const op = "monthly balance"
	if err := p.Validate(); err != nil {
		return core.MonthlyBalance{}, apperrors.InvalidArgument(op, "%v", err)
	}

	mb, err := e.balance(ctx, p)
	if err != nil {
		return core.MonthlyBalance{}, apperrors.Store(op, err)
	}

	e.logger.DebugContext(ctx, "Monthly balance computed",
		log.FieldPeriod, p.String(),
		"income_cents", mb.Income.Cents,
		"expense_cents", mb.Expenses.Cents)
	return mb, nil
}

// CurrentMonthlyBalance is MonthlyBalance for the reference month.
func (e *Engine) CurrentMonthlyBalance(ctx context.Context) (core.MonthlyBalance, error) {
	return e.MonthlyBalance(ctx, e.CurrentPeriod())
}

func (e *Engine) balance(ctx context.Context, p core.Period) (core.MonthlyBalance, error) {
	r := p.Range()
	income, err := e.store.SumAmount(ctx, core.Income, r)
	if err != nil {
		return core.MonthlyBalance{}, err
	}
	expenses, err := e.store.SumAmount(ctx, core.Expense, r)
	if err != nil {
		return core.MonthlyBalance{}, err
	}
	return core.MonthlyBalance{
		Period:   p,
		Income:   income,
		Expenses: expenses,
		Balance:  income.Sub(expenses),
	}, nil
}

// ExpenseBreakdown groups the period's expenses by category with each
// category's share of the total. Zero-amount categories are kept.
func (e *Engine) ExpenseBreakdown(ctx context.Context, p core.Period) (core.Breakdown, error) {
	const op = "expense breakdown"
	if err := p.Validate(); err != nil {
		return nil, apperrors.InvalidArgument(op, "%v", err)
	}

	sums, err := e.store.SumByCategory(ctx, core.Expense, p.Range())
	if err != nil {
		return nil, apperrors.Store(op, err)
	}

	var total int64
	for _, s := range sums {
		total += s.Amount.Cents
	}
	// A zero total would only divide zero amounts; 1 keeps that path finite.
	denom := float64(total)
	if total == 0 {
		denom = 1
	}

	out := make(core.Breakdown, len(sums))
	for _, s := range sums {
		share := out[s.Name]
		share.Amount = share.Amount.Add(s.Amount)
		out[s.Name] = share
	}
	for name, share := range out {
		share.Percentage = 100 * float64(share.Amount.Cents) / denom
		out[name] = share
	}

	e.logger.DebugContext(ctx, "Expense breakdown computed",
		log.FieldPeriod, p.String(),
		"categories", len(out),
		"total_cents", total)
	return out, nil
}

// TransactionHistory returns the newest transactions first. Pass core.Unbounded
// for the full ledger.
func (e *Engine) TransactionHistory(ctx context.Context, limit core.Limit) ([]core.HistoryRecord, error) {
	const op = "transaction history"
	if !limit.IsUnbounded() && limit.N() < 0 {
		return nil, apperrors.InvalidArgument(op, "limit must be >= 0, got %d", limit.N())
	}

	txs, err := e.store.History(ctx, limit)
	if err != nil {
		return nil, apperrors.Store(op, err)
	}
	if !limit.IsUnbounded() && len(txs) > limit.N() {
		txs = txs[:limit.N()]
	}

	out := make([]core.HistoryRecord, len(txs))
	for i, t := range txs {
		out[i] = core.RecordOf(t)
	}

	e.logger.DebugContext(ctx, "Transaction history loaded",
		log.FieldLimit, limit.String(),
		log.FieldRows, len(out))
	return out, nil
}

// MonthlyTrend returns one summary per month for the last n months ending at
// the reference month, oldest first.
func (e *Engine) MonthlyTrend(ctx context.Context, months int) ([]core.TrendPoint, error) {
	return e.MonthlyTrendAt(ctx, e.now(), months)
}

// MonthlyTrendAt is MonthlyTrend with an explicit reference date.
func (e *Engine) MonthlyTrendAt(ctx context.Context, ref time.Time, months int) ([]core.TrendPoint, error) {
	const op = "monthly trend"
	if months < 1 || months > MaxTrendMonths {
		return nil, apperrors.InvalidArgument(op, "months must be between 1 and %d, got %d", MaxTrendMonths, months)
	}
	current := core.PeriodOf(ref)
	if err := current.Validate(); err != nil {
		return nil, apperrors.InvalidArgument(op, "%v", err)
	}
	if oldest := current.AddMonths(1 - months); oldest.Validate() != nil {
		return nil, apperrors.InvalidArgument(op, "a %d month window ending %s starts before year 1", months, current)
	}

	points := make([]core.TrendPoint, 0, months)
	for i := 0; i < months; i++ {
		p := current.AddMonths(-i)
		mb, err := e.balance(ctx, p)
		if err != nil {
			return nil, apperrors.Store(op, err)
		}
		points = append(points, core.TrendPoint{
			Period:   p,
			Label:    p.Label(),
			Income:   mb.Income,
			Expenses: mb.Expenses,
			Balance:  mb.Balance,
		})
	}
	slices.Reverse(points)

	e.logger.DebugContext(ctx, "Monthly trend computed",
		log.FieldMonths, months,
		"from", points[0].Period.String(),
		"to", points[len(points)-1].Period.String())
	return points, nil
}
