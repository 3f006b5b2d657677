package core

import "time"

// The aggregation engine. All functions here are pure: they never mutate
// their input or the static category configuration, so repeated calls over
// the same snapshot yield identical results.

const summaryMonths = 6

type (
	// Summary is the income/expense time series for the six calendar
	// months ending at the reference month, in chronological order.
	Summary struct {
		Months  []string
		Income  []Money
		Expense []Money
	}

	// CategoryTotal is one donut slice: a fixed category with its
	// accumulated amount for the selected type.
	CategoryTotal struct {
		Label  string
		Color  string
		Amount Money
	}

	// Breakdown is the per-category view for one transaction type.
	// Categories keeps the fixed list's order and holds only entries
	// with a positive accumulator.
	Breakdown struct {
		Type       TransactionType
		Categories []CategoryTotal
		Total      Money
	}
)

// Balance returns total income minus total expense. Transactions with
// malformed dates still count; the date plays no role here.
func Balance(txs []Transaction) Money {
	var cents int64
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			cents += tx.Amount.Cents
		case Expense:
			cents -= tx.Amount.Cents
		}
	}
	return Money{Cents: cents}
}

// MonthlySummary buckets transactions into the six calendar months ending
// at ref's month, wrapping across year boundaries. Matching is bounded by
// year and month; a transaction dated June 2023 does not land in a June
// 2024 bucket. Transactions whose date does not parse are excluded.
func MonthlySummary(txs []Transaction, ref time.Time) Summary {
	s := Summary{
		Months:  make([]string, summaryMonths),
		Income:  make([]Money, summaryMonths),
		Expense: make([]Money, summaryMonths),
	}

	// Normalize to the first of the reference month so day-of-month
	// overflow (e.g. stepping back from Mar 31) cannot skew the window.
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)

	// Index of each window month keyed by year*12+month ordinal.
	index := make(map[int]int, summaryMonths)
	for i := 0; i < summaryMonths; i++ {
		m := first.AddDate(0, i-(summaryMonths-1), 0)
		s.Months[i] = MonthNames[int(m.Month())-1]
		index[m.Year()*12+int(m.Month())-1] = i
	}

	for _, tx := range txs {
		d, err := ParseDate(tx.Date)
		if err != nil {
			continue
		}
		i, ok := index[d.Year()*12+int(d.Month())-1]
		if !ok {
			continue
		}
		switch tx.Type {
		case Income:
			s.Income[i].Cents += tx.Amount.Cents
		case Expense:
			s.Expense[i].Cents += tx.Amount.Cents
		}
	}
	return s
}

// CategoryBreakdown sums amounts per fixed category for the selected type.
// Accumulators start from zero on every call; transactions whose category
// label is not in the fixed set are silently skipped. The output preserves
// the fixed list's order and drops zero-amount categories. Total is the
// sum of the returned accumulators.
func CategoryBreakdown(txs []Transaction, t TransactionType) Breakdown {
	cats := CategoriesFor(t)
	acc := make(map[string]int64, len(cats))
	known := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		known[c.Label] = struct{}{}
	}
	for _, tx := range txs {
		if tx.Type != t {
			continue
		}
		if _, ok := known[tx.Category]; ok {
			acc[tx.Category] += tx.Amount.Cents
		}
	}

	b := Breakdown{Type: t}
	for _, c := range cats {
		cents := acc[c.Label]
		if cents <= 0 {
			continue
		}
		b.Categories = append(b.Categories, CategoryTotal{
			Label:  c.Label,
			Color:  c.Color,
			Amount: Money{Cents: cents},
		})
		b.Total.Cents += cents
	}
	return b
}
