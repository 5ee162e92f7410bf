// Package events publishes domain notifications for other services.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

// RoutingKeyBudgetAlert is the routing key of BudgetAlert messages.
const RoutingKeyBudgetAlert = "budget.alert"

// Publisher sends domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishBudgetAlert(ctx context.Context, alert *BudgetAlert) error
	Close() error
}

// BudgetAlert is emitted when a budget moves into a worse status.
type BudgetAlert struct {
	UserID          string              `json:"user_id"`
	BudgetID        string              `json:"budget_id"`
	Category        string              `json:"category"`
	PreviousStatus  models.BudgetStatus `json:"previous_status"`
	Status          models.BudgetStatus `json:"status"`
	BudgetAmount    decimal.Decimal     `json:"budget_amount"`
	SpentAmount     decimal.Decimal     `json:"spent_amount"`
	PercentageSpent float64             `json:"percentage_spent"`
	Timestamp       time.Time           `json:"timestamp"`
}

// NewBudgetAlert builds an alert for b, which has just left previous.
func NewBudgetAlert(b *models.Budget, previous models.BudgetStatus) *BudgetAlert {
	return &BudgetAlert{
		UserID:          b.UserID,
		BudgetID:        b.ID,
		Category:        b.Category,
		PreviousStatus:  previous,
		Status:          b.Status(),
		BudgetAmount:    b.BudgetAmount,
		SpentAmount:     b.SpentAmount,
		PercentageSpent: b.PercentageSpent(),
		Timestamp:       time.Now().UTC(),
	}
}

// ToJSON converts the alert to JSON bytes.
func (a *BudgetAlert) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// IsEscalation reports whether moving from previous to next should alert.
// Only transitions to a strictly worse status count.
func IsEscalation(previous, next models.BudgetStatus) bool {
	return severity(next) > severity(previous)
}

func severity(s models.BudgetStatus) int {
	switch s {
	case models.BudgetStatusWarning:
		return 1
	case models.BudgetStatusExceeded:
		return 2
	default:
		return 0
	}
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

// PublishBudgetAlert implements Publisher.
func (Nop) PublishBudgetAlert(context.Context, *BudgetAlert) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
