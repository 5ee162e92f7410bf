package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/events"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// Reconciler keeps each budget's cached spent amount in line with the
// records it covers. A category budget sums that category's expenses inside
// its window; an overall budget sums every expense and ignores the window.
type Reconciler struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewReconciler creates a Reconciler. A nil publisher disables alerts.
func NewReconciler(db *gorm.DB, publisher events.Publisher) *Reconciler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Reconciler{db: db, publisher: publisher}
}

// Spent sums the expenses a budget covers. A category budget counts its
// category inside [StartDate, EndDate]; the all-categories budget counts
// every expense of the user regardless of date.
func (r *Reconciler) Spent(ctx context.Context, b *models.Budget) (decimal.Decimal, error) {
	q := r.db.WithContext(ctx).Model(&models.Record{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ?", b.UserID, models.RecordTypeExpense)

	if s, ok := b.Scope().(models.CategoryScope); ok {
		q = q.Where("category = ? AND date >= ? AND date <= ?", s.Name, b.StartDate.UTC(), b.EndDate.UTC())
	}

	var spent decimal.Decimal
	if err := q.Row().Scan(&spent); err != nil {
		return decimal.Zero, err
	}
	return spent.Round(2), nil
}

// Reconcile recomputes b's spent amount and persists only that column.
// On failure b keeps its cached value and the error is returned.
func (r *Reconciler) Reconcile(ctx context.Context, b *models.Budget) (*models.Budget, error) {
	previous := b.Status()

	spent, err := r.Spent(ctx, b)
	if err != nil {
		return b, apperrors.Wrap(apperrors.ErrReconciliationFailed, err)
	}

	if !spent.Equal(b.SpentAmount) {
		err := r.db.WithContext(ctx).Model(&models.Budget{}).
			Where("id = ?", b.ID).
			UpdateColumn("spent_amount", spent).Error
		if err != nil {
			return b, apperrors.Wrap(apperrors.ErrReconciliationFailed, err)
		}
		b.SpentAmount = spent
	}

	if b.IsActive && events.IsEscalation(previous, b.Status()) {
		r.alert(ctx, b, previous)
	}
	return b, nil
}

// ReconcileQuietly reconciles b and logs any failure instead of returning
// it, so callers can keep serving the stale cached amount.
func (r *Reconciler) ReconcileQuietly(ctx context.Context, b *models.Budget) *models.Budget {
	if _, err := r.Reconcile(ctx, b); err != nil {
		logger.Named("reconciler").Warnw("budget reconciliation failed",
			"budget_id", b.ID,
			"user_id", b.UserID,
			"category", b.Category,
			"error", err,
		)
	}
	return b
}

// ReconcileAffected reconciles the active budgets a record with this
// category and date falls under: the category budget whose window contains
// date, and any all-categories budget of the user.
func (r *Reconciler) ReconcileAffected(ctx context.Context, userID, category string, date time.Time) error {
	var budgets []models.Budget
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Where("((category = ? AND start_date <= ? AND end_date >= ?) OR category = ?)",
			category, date.UTC(), date.UTC(), models.OverallBudgetCategory).
		Find(&budgets).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrReconciliationFailed, err)
	}

	var errs []error
	for i := range budgets {
		if _, err := r.Reconcile(ctx, &budgets[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Reconciler) alert(ctx context.Context, b *models.Budget, previous models.BudgetStatus) {
	if err := r.publisher.PublishBudgetAlert(ctx, events.NewBudgetAlert(b, previous)); err != nil {
		logger.Named("reconciler").Warnw("failed to publish budget alert",
			"budget_id", b.ID,
			"status", b.Status(),
			"error", err,
		)
	}
}
