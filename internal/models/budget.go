package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OverallBudgetCategory is the category label of a budget that covers every
// expense regardless of category.
const OverallBudgetCategory = "Overall Budget"

// DefaultAlertThreshold is the percentage at which a budget turns to warning.
const DefaultAlertThreshold = 80

// DefaultBudgetColor is used when a budget is created without a color.
const DefaultBudgetColor = "#3B82F6"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Valid reports whether p is a known budget period.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
		return true
	}
	return false
}

// BudgetStatus summarizes how close a budget is to its cap.
type BudgetStatus string

const (
	BudgetStatusGood     BudgetStatus = "good"
	BudgetStatusWarning  BudgetStatus = "warning"
	BudgetStatusExceeded BudgetStatus = "exceeded"
)

// BudgetScope selects which expense records a budget counts.
type BudgetScope interface {
	isBudgetScope()
}

// CategoryScope counts expenses with exactly this category inside the
// budget window.
type CategoryScope struct {
	Name string
}

// AllCategories counts every expense of the user, all time.
type AllCategories struct{}

func (CategoryScope) isBudgetScope() {}
func (AllCategories) isBudgetScope() {}

// ScopeFor maps a category label to its scope.
func ScopeFor(category string) BudgetScope {
	if category == OverallBudgetCategory {
		return AllCategories{}
	}
	return CategoryScope{Name: category}
}

// Budget represents a spending cap for a category over a window.
// SpentAmount is a cache maintained by the reconciler.
type Budget struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;index:idx_budgets_user_category,priority:1" json:"user_id"`
	Category       string          `gorm:"size:50;not null;index:idx_budgets_user_category,priority:2" json:"category"`
	BudgetAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"budget_amount"`
	SpentAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"spent_amount"`
	Period         BudgetPeriod    `gorm:"size:10;not null" json:"period"`
	StartDate      time.Time       `gorm:"not null" json:"start_date"`
	EndDate        time.Time       `gorm:"not null" json:"end_date"`
	IsActive       bool            `gorm:"not null" json:"is_active"`
	AlertThreshold int             `gorm:"not null" json:"alert_threshold"`
	Color          string          `gorm:"size:7" json:"color"`
}

// Scope returns the record predicate this budget applies.
func (b *Budget) Scope() BudgetScope {
	return ScopeFor(b.Category)
}

// RemainingAmount is max(0, budget - spent).
func (b *Budget) RemainingAmount() decimal.Decimal {
	remaining := b.BudgetAmount.Sub(b.SpentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func (b *Budget) percentage() decimal.Decimal {
	if b.BudgetAmount.IsZero() {
		return decimal.Zero
	}
	return b.SpentAmount.Div(b.BudgetAmount).Mul(decimal.NewFromInt(100))
}

// PercentageSpent is spent/budget*100 rounded to two places, 0 for a zero budget.
func (b *Budget) PercentageSpent() float64 {
	return b.percentage().Round(2).InexactFloat64()
}

// Status is exceeded at 100%, warning at or above the alert threshold and
// good otherwise.
func (b *Budget) Status() BudgetStatus {
	pct := b.percentage()
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(100)):
		return BudgetStatusExceeded
	case pct.GreaterThanOrEqual(decimal.NewFromInt(int64(b.AlertThreshold))):
		return BudgetStatusWarning
	default:
		return BudgetStatusGood
	}
}

// MarshalJSON adds the derived fields to the stored ones.
func (b Budget) MarshalJSON() ([]byte, error) {
	type stored Budget
	return json.Marshal(struct {
		stored
		RemainingAmount decimal.Decimal `json:"remaining_amount"`
		PercentageSpent float64         `json:"percentage_spent"`
		Status          BudgetStatus    `json:"status"`
	}{
		stored:          stored(b),
		RemainingAmount: b.RemainingAmount(),
		PercentageSpent: b.PercentageSpent(),
		Status:          b.Status(),
	})
}
