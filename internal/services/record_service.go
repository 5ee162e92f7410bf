package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/ledger"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// recordService handles record-related business logic.
type recordService struct {
	db         *gorm.DB
	reconciler *Reconciler
	cal        ledger.Calendar
}

// NewRecordService creates a new RecordServicer. cal supplies the default
// date of records created without one.
func NewRecordService(db *gorm.DB, reconciler *Reconciler, cal ledger.Calendar) RecordServicer {
	return &recordService{db: db, reconciler: reconciler, cal: cal}
}

// CreateRecord validates and stores a record. An expense reconciles the
// budgets covering its category and date.
func (s *recordService) CreateRecord(ctx context.Context, userID string, in RecordInput) (*models.Record, error) {
	date := s.cal.Now()
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}

	record := &models.Record{
		UserID:             userID,
		Description:        strings.TrimSpace(in.Description),
		Amount:             in.Amount,
		Type:               in.Type,
		Category:           strings.TrimSpace(in.Category),
		Date:               date.UTC(),
		PaymentMethod:      in.PaymentMethod,
		Tags:               normalizeTags(in.Tags),
		Notes:              in.Notes,
		IsRecurring:        in.IsRecurring,
		RecurringFrequency: in.RecurringFrequency,
	}
	if err := prepareRecord(record); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if record.IsExpense() {
		s.reconcileAffected(ctx, userID, record.Category, record.Date)
	}
	return record, nil
}

// GetRecordByID retrieves a record by ID for a specific user.
func (s *recordService) GetRecordByID(ctx context.Context, userID, recordID string) (*models.Record, error) {
	var record models.Record
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", recordID, userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}

// ListRecords returns a filtered page of records, newest date first.
func (s *recordService) ListRecords(ctx context.Context, userID string, page pagination.PageRequest, filter RecordFilter) (*pagination.PageResponse[models.Record], error) {
	base := s.db.WithContext(ctx).Model(&models.Record{}).Where("user_id = ?", userID)
	base = applyRecordFilters(base, filter)

	result, err := pagination.Fetch[models.Record](base, page, "date DESC, created_at DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &result, nil
}

func applyRecordFilters(q *gorm.DB, f RecordFilter) *gorm.DB {
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if f.PaymentMethod != nil {
		q = q.Where("payment_method = ?", *f.PaymentMethod)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(description) LIKE ? OR LOWER(notes) LIKE ?", like, like)
	}
	return q
}

// UpdateRecord applies a partial update. The budgets of the old category
// and date are reconciled if the record was an expense, and those of the
// new category and date if it is one now.
func (s *recordService) UpdateRecord(ctx context.Context, userID, recordID string, in RecordUpdate) (*models.Record, error) {
	record, err := s.GetRecordByID(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}

	wasExpense := record.IsExpense()
	oldCategory, oldDate := record.Category, record.Date

	if in.Description != nil {
		record.Description = strings.TrimSpace(*in.Description)
	}
	if in.Amount != nil {
		record.Amount = *in.Amount
	}
	if in.Type != nil {
		record.Type = *in.Type
	}
	if in.Category != nil {
		record.Category = strings.TrimSpace(*in.Category)
	}
	if in.Date != nil && !in.Date.IsZero() {
		record.Date = in.Date.UTC()
	}
	if in.PaymentMethod != nil {
		record.PaymentMethod = *in.PaymentMethod
	}
	if in.Tags != nil {
		record.Tags = normalizeTags(*in.Tags)
	}
	if in.Notes != nil {
		record.Notes = *in.Notes
	}
	if in.IsRecurring != nil {
		record.IsRecurring = *in.IsRecurring
	}
	if in.RecurringFrequency != nil {
		record.RecurringFrequency = in.RecurringFrequency
	}
	if err := prepareRecord(record); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	sameTarget := oldCategory == record.Category && oldDate.Equal(record.Date)
	if wasExpense {
		s.reconcileAffected(ctx, userID, oldCategory, oldDate)
	}
	if record.IsExpense() && !(wasExpense && sameTarget) {
		s.reconcileAffected(ctx, userID, record.Category, record.Date)
	}
	return record, nil
}

// DeleteRecord permanently removes a record and reconciles the budgets it
// counted toward.
func (s *recordService) DeleteRecord(ctx context.Context, userID, recordID string) error {
	record, err := s.GetRecordByID(ctx, userID, recordID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(record).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if record.IsExpense() {
		s.reconcileAffected(ctx, userID, record.Category, record.Date)
	}
	return nil
}

// reconcileAffected never fails the mutation that triggered it.
func (s *recordService) reconcileAffected(ctx context.Context, userID, category string, date time.Time) {
	if err := s.reconciler.ReconcileAffected(ctx, userID, category, date); err != nil {
		logger.Named("records").Warnw("budget reconciliation after record change failed",
			"user_id", userID,
			"category", category,
			"error", err,
		)
	}
}

// prepareRecord validates r and fills defaults in place.
func prepareRecord(r *models.Record) error {
	if n := utf8.RuneCountInString(r.Description); n == 0 || n > models.MaxDescriptionLength {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "description must be between 1 and 200 characters")
	}
	if !r.Amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if err := validateAmount(r.Amount, "amount"); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
	}
	if err := validateCategory(r.Category); err != nil {
		return err
	}

	if r.PaymentMethod == "" {
		r.PaymentMethod = models.PaymentMethodCash
	}
	if !r.PaymentMethod.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid payment method")
	}

	if len(r.Tags) > models.MaxTags {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "a record can have at most 10 tags")
	}
	for _, tag := range r.Tags {
		if utf8.RuneCountInString(tag) > models.MaxTagLength {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "tags must be at most 30 characters")
		}
	}

	if utf8.RuneCountInString(r.Notes) > models.MaxNotesLength {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "notes must be at most 500 characters")
	}

	if !r.IsRecurring {
		r.RecurringFrequency = nil
		return nil
	}
	if r.RecurringFrequency == nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring frequency is required for recurring records")
	}
	if !r.RecurringFrequency.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring frequency must be daily, weekly, monthly, or yearly")
	}
	return nil
}

var maxAmount = decimal.New(1, models.MaxAmountDigits)

// validateAmount rejects values the decimal(15,2) columns cannot hold
// without rounding.
func validateAmount(amount decimal.Decimal, field string) error {
	if !amount.Equal(amount.Round(models.AmountScale)) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must have at most 2 decimal places")
	}
	if amount.Abs().GreaterThanOrEqual(maxAmount) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must have at most 13 integer digits")
	}
	return nil
}

func validateCategory(category string) error {
	if n := utf8.RuneCountInString(category); n == 0 || n > models.MaxCategoryLength {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category must be between 1 and 50 characters")
	}
	return nil
}

// normalizeTags trims tags and drops blanks and repeats, keeping order.
func normalizeTags(tags []string) models.Tags {
	out := make(models.Tags, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
