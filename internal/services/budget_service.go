package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/ledger"
	"fintrack/internal/models"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db         *gorm.DB
	reconciler *Reconciler
	cal        ledger.Calendar
}

// NewBudgetService creates a new BudgetServicer. Budget windows are
// computed with cal.
func NewBudgetService(db *gorm.DB, reconciler *Reconciler, cal ledger.Calendar) BudgetServicer {
	return &budgetService{db: db, reconciler: reconciler, cal: cal}
}

// CreateBudget creates an active budget for a category, with its window
// derived from the period and the current date, and reconciles it.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error) {
	category := strings.TrimSpace(in.Category)
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if in.BudgetAmount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount cannot be negative")
	}
	if err := validateAmount(in.BudgetAmount, "budget amount"); err != nil {
		return nil, err
	}
	if !in.Period.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be weekly, monthly, or yearly")
	}

	threshold := models.DefaultAlertThreshold
	if in.AlertThreshold != nil {
		threshold = *in.AlertThreshold
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}

	color := in.Color
	if color == "" {
		color = models.DefaultBudgetColor
	}

	if err := s.ensureNoActiveBudget(ctx, userID, category, ""); err != nil {
		return nil, err
	}

	window, err := s.cal.BudgetWindow(in.Period)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	budget := &models.Budget{
		UserID:         userID,
		Category:       category,
		BudgetAmount:   in.BudgetAmount,
		SpentAmount:    decimal.Zero,
		Period:         in.Period,
		StartDate:      window.Start.UTC(),
		EndDate:        window.End.UTC(),
		IsActive:       true,
		AlertThreshold: threshold,
		Color:          color,
	}

	if err := s.db.WithContext(ctx).Create(budget).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateActiveBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.reconciler.ReconcileQuietly(ctx, budget), nil
}

// GetBudgetByID returns a reconciled budget if it belongs to the user.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	budget, err := s.find(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	return s.reconciler.ReconcileQuietly(ctx, budget), nil
}

// ListBudgets returns the user's budgets, newest first, each reconciled.
func (s *budgetService) ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]models.Budget, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	budgets := make([]models.Budget, 0)
	if err := q.Order("created_at DESC").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range budgets {
		s.reconciler.ReconcileQuietly(ctx, &budgets[i])
	}
	return budgets, nil
}

// UpdateBudget applies the provided fields. A period change recomputes the
// window from the current date; the budget is always reconciled afterwards.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetUpdate) (*models.Budget, error) {
	budget, err := s.find(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if err := validateCategory(category); err != nil {
			return nil, err
		}
		if category != budget.Category {
			updates["category"] = category
			budget.Category = category
		}
	}
	if in.BudgetAmount != nil {
		if in.BudgetAmount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount cannot be negative")
		}
		if err := validateAmount(*in.BudgetAmount, "budget amount"); err != nil {
			return nil, err
		}
		updates["budget_amount"] = *in.BudgetAmount
		budget.BudgetAmount = *in.BudgetAmount
	}
	if in.Period != nil && *in.Period != budget.Period {
		window, err := s.cal.BudgetWindow(*in.Period)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be weekly, monthly, or yearly")
		}
		budget.Period = *in.Period
		budget.StartDate = window.Start.UTC()
		budget.EndDate = window.End.UTC()
		updates["period"] = budget.Period
		updates["start_date"] = budget.StartDate
		updates["end_date"] = budget.EndDate
	}
	if in.AlertThreshold != nil {
		if err := validateThreshold(*in.AlertThreshold); err != nil {
			return nil, err
		}
		updates["alert_threshold"] = *in.AlertThreshold
		budget.AlertThreshold = *in.AlertThreshold
	}
	if in.Color != nil {
		updates["color"] = *in.Color
		budget.Color = *in.Color
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
		budget.IsActive = *in.IsActive
	}

	_, categoryChanged := updates["category"]
	_, activated := updates["is_active"]
	if budget.IsActive && (categoryChanged || activated) {
		if err := s.ensureNoActiveBudget(ctx, userID, budget.Category, budget.ID); err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 {
		if err := s.save(ctx, budget, updates); err != nil {
			return nil, err
		}
	}

	return s.reconciler.ReconcileQuietly(ctx, budget), nil
}

// DeleteBudget permanently removes a budget.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	budget, err := s.find(ctx, userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ToggleBudgetActive flips IsActive. Activating is rejected when another
// active budget already covers the category.
func (s *budgetService) ToggleBudgetActive(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	budget, err := s.find(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	active := !budget.IsActive
	if active {
		if err := s.ensureNoActiveBudget(ctx, userID, budget.Category, budget.ID); err != nil {
			return nil, err
		}
	}

	budget.IsActive = active
	if err := s.save(ctx, budget, map[string]interface{}{"is_active": active}); err != nil {
		return nil, err
	}

	return s.reconciler.ReconcileQuietly(ctx, budget), nil
}

// GetBudgetOverview totals the user's active budgets and lists those in
// warning or exceeded status.
func (s *budgetService) GetBudgetOverview(ctx context.Context, userID string) (*BudgetOverview, error) {
	budgets, err := s.ListBudgets(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	overview := &BudgetOverview{
		TotalBudgeted:  decimal.Zero,
		TotalSpent:     decimal.Zero,
		TotalRemaining: decimal.Zero,
		ActiveBudgets:  len(budgets),
		Alerts:         make([]models.Budget, 0),
	}
	for i := range budgets {
		b := &budgets[i]
		overview.TotalBudgeted = overview.TotalBudgeted.Add(b.BudgetAmount)
		overview.TotalSpent = overview.TotalSpent.Add(b.SpentAmount)
		overview.TotalRemaining = overview.TotalRemaining.Add(b.RemainingAmount())

		switch b.Status() {
		case models.BudgetStatusExceeded:
			overview.Exceeded++
			overview.Alerts = append(overview.Alerts, *b)
		case models.BudgetStatusWarning:
			overview.Warning++
			overview.Alerts = append(overview.Alerts, *b)
		default:
			overview.Good++
		}
	}
	return overview, nil
}

func (s *budgetService) find(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

func (s *budgetService) save(ctx context.Context, budget *models.Budget, updates map[string]interface{}) error {
	if err := s.db.WithContext(ctx).Model(budget).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateActiveBudget
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ensureNoActiveBudget fails when the user already has an active budget
// for category other than exceptID.
func (s *budgetService) ensureNoActiveBudget(ctx context.Context, userID, category, exceptID string) error {
	q := s.db.WithContext(ctx).Model(&models.Budget{}).
		Where("user_id = ? AND category = ? AND is_active = ?", userID, category, true)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateActiveBudget
	}
	return nil
}

func validateThreshold(threshold int) error {
	if threshold < 0 || threshold > 100 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 100")
	}
	return nil
}
