package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/ledger"
	"fintrack/internal/models"
)

// Bounds accepted for summary periods.
const (
	minSummaryYear  = 1970
	maxSummaryYear  = 9999
	maxTrendMonths  = 24
	defaultTrendLen = 6
)

// summaryService computes ledger aggregates, in the database where it can.
type summaryService struct {
	db  *gorm.DB
	cal ledger.Calendar
}

// NewSummaryService creates a new SummaryServicer.
func NewSummaryService(db *gorm.DB, cal ledger.Calendar) SummaryServicer {
	return &summaryService{db: db, cal: cal}
}

// GetBalance returns all-time income, expense and balance.
func (s *summaryService) GetBalance(ctx context.Context, userID string) (*ledger.Totals, error) {
	totals, err := s.totals(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// GetMonthlySummary returns the totals of one 1-indexed month.
func (s *summaryService) GetMonthlySummary(ctx context.Context, userID string, year, month int) (*ledger.MonthlySummary, error) {
	if err := validateYearMonth(&year, &month); err != nil {
		return nil, err
	}

	w := s.cal.MonthWindow(year, time.Month(month))
	totals, err := s.totals(ctx, userID, &w)
	if err != nil {
		return nil, err
	}
	return &ledger.MonthlySummary{Totals: totals, Month: month, Year: year}, nil
}

// GetCategoryBreakdown groups one record type by category, largest total
// first. Without year it spans all time; a month requires a year.
func (s *summaryService) GetCategoryBreakdown(ctx context.Context, userID string, recordType models.RecordType, year, month *int) ([]ledger.CategoryTotal, error) {
	if recordType == "" {
		recordType = models.RecordTypeExpense
	}
	if !recordType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
	}
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.Record{}).
		Select("category, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("user_id = ? AND type = ?", userID, recordType)

	if year != nil {
		w := ledger.YearWindow(*year, s.cal.Zone())
		if month != nil {
			w = s.cal.MonthWindow(*year, time.Month(*month))
		}
		q = q.Where("date >= ? AND date <= ?", w.Start.UTC(), w.End.UTC())
	}

	rows, err := q.Group("category").Order("total DESC").Rows()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer rows.Close()

	result := make([]ledger.CategoryTotal, 0)
	for rows.Next() {
		var ct ledger.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		ct.Total = ct.Total.Round(2)
		result = append(result, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ledger.SortCategoryTotals(result)
	return result, nil
}

// GetMonthlyTrend returns the totals of the last months calendar months,
// oldest first, ending with the current month. The records of the whole
// range are loaded once and bucketed per month.
func (s *summaryService) GetMonthlyTrend(ctx context.Context, userID string, months int) ([]ledger.MonthlySummary, error) {
	if months == 0 {
		months = defaultTrendLen
	}
	if months < 1 || months > maxTrendMonths {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "months must be between 1 and 24")
	}

	span := ledger.LastMonths(s.cal.Now(), months)
	first := s.cal.MonthWindow(span[0].Year, span[0].Month)
	last := s.cal.MonthWindow(span[len(span)-1].Year, span[len(span)-1].Month)

	var records []models.Record
	err := s.db.WithContext(ctx).Model(&models.Record{}).
		Select("type", "amount", "date").
		Where("user_id = ? AND date >= ? AND date <= ?", userID, first.Start.UTC(), last.End.UTC()).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	trend := make([]ledger.MonthlySummary, 0, months)
	for _, ym := range span {
		trend = append(trend, ledger.Monthly(records, ym.Year, int(ym.Month), s.cal))
	}
	return trend, nil
}

// totals sums income and expense, optionally inside w.
func (s *summaryService) totals(ctx context.Context, userID string, w *ledger.Window) (ledger.Totals, error) {
	q := s.db.WithContext(ctx).Model(&models.Record{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0), "+
			"COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0)",
			models.RecordTypeIncome, models.RecordTypeExpense).
		Where("user_id = ?", userID)
	if w != nil {
		q = q.Where("date >= ? AND date <= ?", w.Start.UTC(), w.End.UTC())
	}

	var income, expense decimal.Decimal
	if err := q.Row().Scan(&income, &expense); err != nil {
		return ledger.Totals{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ledger.NewTotals(income.Round(2), expense.Round(2)), nil
}

// validateYearMonth checks optional year and month bounds. A month
// without a year is rejected.
func validateYearMonth(year, month *int) error {
	if month != nil && year == nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "month requires year")
	}
	if year != nil && (*year < minSummaryYear || *year > maxSummaryYear) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "year must be between 1970 and 9999")
	}
	if month != nil && (*month < 1 || *month > 12) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}
	return nil
}
