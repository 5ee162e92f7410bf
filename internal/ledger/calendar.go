package ledger

import (
	"time"

	"fintrack/internal/models"
)

// Calendar carries the clock and locale rules that derived windows depend
// on. The zero value uses UTC, Sunday week starts and the wall clock.
type Calendar struct {
	WeekStart time.Weekday
	Location  *time.Location
	Clock     func() time.Time
}

// Now returns the current instant in the calendar's location.
func (c Calendar) Now() time.Time {
	now := time.Now()
	if c.Clock != nil {
		now = c.Clock()
	}
	return now.In(c.Zone())
}

// BudgetWindow is BudgetWindow evaluated at the calendar's now.
func (c Calendar) BudgetWindow(period models.BudgetPeriod) (Window, error) {
	return BudgetWindow(period, c.Now(), c.WeekStart)
}

// MonthWindow is MonthWindow in the calendar's location.
func (c Calendar) MonthWindow(year int, month time.Month) Window {
	return MonthWindow(year, month, c.Zone())
}

// ParseDate reads a YYYY-MM-DD date as midnight in the calendar's location.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, c.Zone())
}

// Zone returns the calendar's location, UTC when unset.
func (c Calendar) Zone() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}
