package ledger

import (
	"fmt"
	"time"

	"fintrack/internal/models"
)

// DateLayout is the layout of calendar dates without a time of day.
const DateLayout = "2006-01-02"

// lastMicro is the final representable instant of a day at the microsecond
// precision postgres keeps for timestamps.
const lastMicro = int(time.Second - time.Microsecond)

// Window is a closed interval [Start, End].
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the window, both ends included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, lastMicro, t.Location())
}

// MonthWindow spans the first to the last instant of a 1-indexed month.
// The last day is "day 0 of the next month", which rolls December into
// January and handles leap years without a day-count table.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	return Window{Start: start, End: EndOfDay(last)}
}

// YearWindow spans Jan 1 through Dec 31 of year.
func YearWindow(year int, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	return Window{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
		End:   EndOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, loc)),
	}
}

// WeekWindow spans the most recent weekStart on or before now through six
// days later.
func WeekWindow(now time.Time, weekStart time.Weekday) Window {
	back := (int(now.Weekday()) - int(weekStart) + 7) % 7
	start := StartOfDay(now).AddDate(0, 0, -back)
	return Window{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}
}

// BudgetWindow maps a budget period to the window containing now.
func BudgetWindow(period models.BudgetPeriod, now time.Time, weekStart time.Weekday) (Window, error) {
	switch period {
	case models.BudgetPeriodWeekly:
		return WeekWindow(now, weekStart), nil
	case models.BudgetPeriodMonthly:
		return MonthWindow(now.Year(), now.Month(), now.Location()), nil
	case models.BudgetPeriodYearly:
		return YearWindow(now.Year(), now.Location()), nil
	}
	return Window{}, fmt.Errorf("unknown budget period %q", period)
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// LastMonths returns the n months ending with now's month, oldest first.
func LastMonths(now time.Time, n int) []YearMonth {
	if n <= 0 {
		return nil
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]YearMonth, 0, n)
	for i := n - 1; i >= 0; i-- {
		m := first.AddDate(0, -i, 0)
		out = append(out, YearMonth{Year: m.Year(), Month: m.Month()})
	}
	return out
}
