package core

import (
	"fmt"
	"time"
)

// Period is a calendar year and month, the aggregation granularity.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

// DateRange is the half-open interval [From, To) of calendar dates.
type DateRange struct {
	From Date
	To   Date
}

// PeriodOf returns the period containing t, read in t's own location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, p.Month)
	}
	if p.Year < 1 || p.Year > 9999 {
		return fmt.Errorf("invalid year: %d", p.Year)
	}
	return nil
}

// First returns the first day of the period.
func (p Period) First() Date {
	return NewDate(p.Year, p.Month, 1)
}

// AddMonths moves the period by n whole months (negative walks backward).
// The arithmetic is done on the first-of-month date so year boundaries roll
// over correctly in both directions.
func (p Period) AddMonths(n int) Period {
	t := p.First().AddDate(0, n, 0)
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Range returns the dates covered by the period.
func (p Period) Range() DateRange {
	return DateRange{From: p.First(), To: p.AddMonths(1).First()}
}

// Label is the short month name, e.g. "Jan".
func (p Period) Label() string {
	return time.Month(p.Month).String()[:3]
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Last is the final day inside the range. Stores that compare ISO date
// strings bound on it, since To of 9999-12 has a five digit year.
func (r DateRange) Last() Date {
	return Date{Time: r.To.AddDate(0, 0, -1)}
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From.Time) && d.Before(r.To.Time)
}
