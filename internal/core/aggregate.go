package core

import (
	"fmt"
	"sort"
	"time"
)

const (
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

// Window is a trailing time range used to filter transactions for the
// category summary.
type Window string

// ParseWindow validates a window string from the wire.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowWeek, WindowMonth, WindowYear:
		return Window(s), nil
	default:
		return "", fmt.Errorf("invalid window %q", s)
	}
}

// Start returns the beginning of the window relative to now: 7 days, one
// calendar month or one calendar year back.
func (w Window) Start(now time.Time) time.Time {
	switch w {
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, -1, 0)
	case WindowYear:
		return now.AddDate(-1, 0, 0)
	}
	return now
}

// InWindow reports whether the transaction date falls within [start, now],
// inclusive on both ends. Evaluation time is passed in by the caller; the
// aggregation functions never read a clock themselves.
func InWindow(t Transaction, w Window, now time.Time) bool {
	start := w.Start(now)
	return !t.Date.Before(start) && !t.Date.After(now)
}

// FilterWindow returns the subset of txs whose date falls within the window.
func FilterWindow(txs []Transaction, w Window, now time.Time) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if InWindow(t, w, now) {
			out = append(out, t)
		}
	}
	return out
}

// Totals are the unconditional dashboard figures, computed over the entire
// collection with no time window. Balance = Income - Expense and may go
// negative.
type Totals struct {
	Income       Money
	Expense      Money
	Balance      Money
	IncomeCount  int
	ExpenseCount int
}

// Summarize computes the dashboard totals.
func Summarize(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			t.Income.Cents += tx.Amount.Cents
			t.IncomeCount++
		case Expense:
			t.Expense.Cents += tx.Amount.Cents
			t.ExpenseCount++
		}
	}
	t.Balance.Cents = t.Income.Cents - t.Expense.Cents
	return t
}

// CategoryAmount is an amount aggregated under one category label.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// Breakdown is the windowed per-category view: groups sorted by amount
// descending plus the grand total for the selected type within the window.
type Breakdown struct {
	Groups []CategoryAmount `json:"categories"`
	Total  Money            `json:"total"`
}

// BreakdownByCategory filters txs to the window and type, groups by the
// exact category string and sums each group. Groups come back sorted by sum
// descending; equal sums keep first-encounter order. Empty input yields
// empty groups and a zero total.
func BreakdownByCategory(txs []Transaction, typ TransactionType, w Window, now time.Time) Breakdown {
	return GroupByCategory(FilterWindow(txs, w, now), typ)
}

// GroupByCategory is the unwindowed variant: it groups every transaction of
// the given type by its category. Same ordering rules as BreakdownByCategory.
func GroupByCategory(txs []Transaction, typ TransactionType) Breakdown {
	sums := make(map[string]int64)
	var order []string
	var total int64

	for _, t := range txs {
		if t.Type != typ {
			continue
		}
		if _, seen := sums[t.Category]; !seen {
			order = append(order, t.Category)
		}
		sums[t.Category] += t.Amount.Cents
		total += t.Amount.Cents
	}

	groups := make([]CategoryAmount, 0, len(order))
	for _, cat := range order {
		groups = append(groups, CategoryAmount{Category: cat, Amount: Money{Cents: sums[cat]}})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Amount.Cents > groups[j].Amount.Cents
	})

	return Breakdown{Groups: groups, Total: Money{Cents: total}}
}
