// Package ledger holds the pure aggregation rules over financial records:
// totals, category breakdowns and calendar windows. Functions here never
// touch storage; the services package feeds them loaded records or runs
// the same rules as SQL aggregates.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

// Totals is the income/expense/balance triple.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// NewTotals derives the balance from income and expense.
func NewTotals(income, expense decimal.Decimal) Totals {
	return Totals{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// MonthlySummary is Totals restricted to one calendar month.
type MonthlySummary struct {
	Totals
	Month int `json:"month"`
	Year  int `json:"year"`
}

// CategoryTotal is one row of a category breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

// Balance sums income and expense over records.
func Balance(records []models.Record) Totals {
	income, expense := decimal.Zero, decimal.Zero
	for i := range records {
		switch records[i].Type {
		case models.RecordTypeIncome:
			income = income.Add(records[i].Amount)
		case models.RecordTypeExpense:
			expense = expense.Add(records[i].Amount)
		}
	}
	return NewTotals(income, expense)
}

// InWindow returns the records dated inside w.
func InWindow(records []models.Record, w Window) []models.Record {
	out := make([]models.Record, 0, len(records))
	for i := range records {
		if w.Contains(records[i].Date) {
			out = append(out, records[i])
		}
	}
	return out
}

// Monthly is Balance over the records of one month.
func Monthly(records []models.Record, year int, month int, cal Calendar) MonthlySummary {
	w := cal.MonthWindow(year, time.Month(month))
	return MonthlySummary{Totals: Balance(InWindow(records, w)), Month: month, Year: year}
}

// CategoryBreakdown groups records of type t by category label.
func CategoryBreakdown(records []models.Record, t models.RecordType) []CategoryTotal {
	index := make(map[string]int)
	out := make([]CategoryTotal, 0)
	for i := range records {
		if records[i].Type != t {
			continue
		}
		pos, ok := index[records[i].Category]
		if !ok {
			pos = len(out)
			index[records[i].Category] = pos
			out = append(out, CategoryTotal{Category: records[i].Category, Total: decimal.Zero})
		}
		out[pos].Total = out[pos].Total.Add(records[i].Amount)
		out[pos].Count++
	}
	SortCategoryTotals(out)
	return out
}

// SortCategoryTotals orders by total descending, then label ascending so
// equal totals come back in a stable order.
func SortCategoryTotals(items []CategoryTotal) {
	sort.SliceStable(items, func(i, j int) bool {
		if c := items[i].Total.Cmp(items[j].Total); c != 0 {
			return c > 0
		}
		return items[i].Category < items[j].Category
	})
}
