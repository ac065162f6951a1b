package core

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultHistoryLimit caps history views when the caller does not choose.
const DefaultHistoryLimit = 50

// Limit caps the number of history rows. Unbounded is a distinct mode rather
// than a very large number.
type Limit struct {
	n         int
	unbounded bool
}

// Unbounded returns the full history. Export depends on it.
var Unbounded = Limit{unbounded: true}

// LimitOf caps results at n rows.
func LimitOf(n int) Limit { return Limit{n: n} }

// DefaultLimit is LimitOf(DefaultHistoryLimit).
func DefaultLimit() Limit { return LimitOf(DefaultHistoryLimit) }

// ParseLimit reads "all" (or "none") as Unbounded and anything else as a
// non-negative row count. An empty string yields the default.
func ParseLimit(s string) (Limit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return DefaultLimit(), nil
	case "all", "none":
		return Unbounded, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Limit{}, fmt.Errorf("invalid limit %q", s)
	}
	return LimitOf(n), nil
}

func (l Limit) IsUnbounded() bool { return l.unbounded }

// N returns the cap; meaningless when unbounded.
func (l Limit) N() int { return l.n }

func (l Limit) String() string {
	if l.unbounded {
		return "all"
	}
	return strconv.Itoa(l.n)
}
