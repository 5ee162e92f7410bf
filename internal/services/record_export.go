package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/ledger"
	"fintrack/internal/models"
)

const (
	exportSheet  = "Records"
	summarySheet = "Summary"
)

var exportHeader = []interface{}{
	"Date", "Type", "Category", "Description", "Amount", "Payment Method", "Tags", "Notes", "Recurring",
}

var summaryHeader = []interface{}{"Category", "Type", "Total", "Count"}

// ExportRecords writes every record matching filter as an XLSX workbook,
// with a second sheet totalling the exported rows.
func (s *recordService) ExportRecords(ctx context.Context, userID string, filter RecordFilter, w io.Writer) error {
	q := s.db.WithContext(ctx).Model(&models.Record{}).Where("user_id = ?", userID)
	q = applyRecordFilters(q, filter)

	var records []models.Record
	if err := q.Order("date DESC, created_at DESC").Find(&records).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	f, err := buildRecordWorkbook(records, s.cal.Zone())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func buildRecordWorkbook(records []models.Record, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		f.Close()
		return nil, err
	}

	for i := range records {
		r := &records[i]
		recurring := ""
		if r.IsRecurring && r.RecurringFrequency != nil {
			recurring = string(*r.RecurringFrequency)
		}
		row := []interface{}{
			r.Date.In(loc).Format(ledger.DateLayout),
			string(r.Type),
			r.Category,
			r.Description,
			r.Amount.InexactFloat64(),
			string(r.PaymentMethod),
			strings.Join(r.Tags, ", "),
			r.Notes,
			recurring,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeSummarySheet(f, records); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// writeSummarySheet adds the overall totals followed by the per-category
// breakdown of expenses, then income.
func writeSummarySheet(f *excelize.File, records []models.Record) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	totals := ledger.Balance(records)
	rows := [][]interface{}{
		{"Income", totals.Income.InexactFloat64()},
		{"Expense", totals.Expense.InexactFloat64()},
		{"Balance", totals.Balance.InexactFloat64()},
		{},
		summaryHeader,
	}
	for _, t := range []models.RecordType{models.RecordTypeExpense, models.RecordTypeIncome} {
		for _, ct := range ledger.CategoryBreakdown(records, t) {
			rows = append(rows, []interface{}{ct.Category, string(t), ct.Total.InexactFloat64(), ct.Count})
		}
	}

	for i := range rows {
		if len(rows[i]) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}
