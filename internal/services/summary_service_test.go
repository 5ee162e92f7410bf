package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/ledger"
	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestGetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		f := newFixture(t)
		got, err := f.summary.GetBalance(ctx, f.user.ID)
		testutil.AssertNoError(t, err)
		assertAmount(t, "income", got.Income, "0")
		assertAmount(t, "expense", got.Expense, "0")
		assertAmount(t, "balance", got.Balance, "0")
	})

	t.Run("all_time", func(t *testing.T) {
		f := newFixture(t)
		f.seedMarchLedger(t)
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeExpense, "0.10", "Misc", day(2019, time.June, 1))
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeExpense, "0.20", "Misc", day(2019, time.June, 2))

		other := testutil.CreateTestUser(t, f.db)
		testutil.CreateTestRecord(t, f.db, other.ID, models.RecordTypeIncome, "1000000", "Salary", midMarch)

		got, err := f.summary.GetBalance(ctx, f.user.ID)
		testutil.AssertNoError(t, err)
		assertAmount(t, "income", got.Income, "5000")
		assertAmount(t, "expense", got.Expense, "1700.30")
		assertAmount(t, "balance", got.Balance, "3299.70")
	})
}

func TestGetMonthlySummary(t *testing.T) {
	ctx := context.Background()

	t.Run("march_salary_rent_and_food", func(t *testing.T) {
		f := newFixture(t)
		f.seedMarchLedger(t)

		got, err := f.summary.GetMonthlySummary(ctx, f.user.ID, 2024, 3)
		testutil.AssertNoError(t, err)
		if got.Year != 2024 || got.Month != 3 {
			t.Errorf("unexpected period %d-%d", got.Year, got.Month)
		}
		assertAmount(t, "income", got.Income, "5000")
		assertAmount(t, "expense", got.Expense, "1700")
		assertAmount(t, "balance", got.Balance, "3300")
	})

	t.Run("boundary_instants", func(t *testing.T) {
		f := newFixture(t)
		w := ledger.MonthWindow(2024, time.March, time.UTC)
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "1", "x", w.Start)
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "2", "x", w.End)
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "4", "x", w.Start.Add(-time.Microsecond))
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "8", "x", w.End.Add(time.Microsecond))

		got, err := f.summary.GetMonthlySummary(ctx, f.user.ID, 2024, 3)
		testutil.AssertNoError(t, err)
		assertAmount(t, "income", got.Income, "3")
	})

	t.Run("leap_february", func(t *testing.T) {
		f := newFixture(t)
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeExpense, "29", "x", day(2024, time.February, 29))

		got, err := f.summary.GetMonthlySummary(ctx, f.user.ID, 2024, 2)
		testutil.AssertNoError(t, err)
		assertAmount(t, "expense", got.Expense, "29")
	})

	t.Run("invalid_month", func(t *testing.T) {
		f := newFixture(t)
		for _, month := range []int{0, 13} {
			_, err := f.summary.GetMonthlySummary(ctx, f.user.ID, 2024, month)
			testutil.AssertAppError(t, err, "INVALID_INPUT")
		}
	})

	t.Run("invalid_year", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.summary.GetMonthlySummary(ctx, f.user.ID, 1969, 1)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetCategoryBreakdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedMarchLedger(t)
	testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeExpense, "100", "Food & Dining", day(2024, time.April, 2))
	testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeExpense, "50", "Transport", day(2023, time.July, 4))

	t.Run("all_time_sorted_desc", func(t *testing.T) {
		got, err := f.summary.GetCategoryBreakdown(ctx, f.user.ID, "", nil, nil)
		testutil.AssertNoError(t, err)
		if len(got) != 3 {
			t.Fatalf("expected 3 categories, got %d", len(got))
		}
		if got[0].Category != "Housing" || got[1].Category != "Food & Dining" || got[2].Category != "Transport" {
			t.Errorf("unexpected order %v", got)
		}
		assertAmount(t, "food", got[1].Total, "600")
		if got[1].Count != 2 {
			t.Errorf("expected 2 food records, got %d", got[1].Count)
		}
	})

	t.Run("year", func(t *testing.T) {
		got, err := f.summary.GetCategoryBreakdown(ctx, f.user.ID, models.RecordTypeExpense, ptr(2023), nil)
		testutil.AssertNoError(t, err)
		if len(got) != 1 || got[0].Category != "Transport" {
			t.Errorf("expected only transport in 2023, got %v", got)
		}
	})

	t.Run("month", func(t *testing.T) {
		got, err := f.summary.GetCategoryBreakdown(ctx, f.user.ID, models.RecordTypeExpense, ptr(2024), ptr(3))
		testutil.AssertNoError(t, err)
		if len(got) != 2 {
			t.Fatalf("expected 2 categories, got %d", len(got))
		}
		assertAmount(t, "food", got[1].Total, "500")
	})

	t.Run("income", func(t *testing.T) {
		got, err := f.summary.GetCategoryBreakdown(ctx, f.user.ID, models.RecordTypeIncome, nil, nil)
		testutil.AssertNoError(t, err)
		if len(got) != 1 || got[0].Category != "Salary" {
			t.Errorf("expected salary only, got %v", got)
		}
	})

	t.Run("empty_period", func(t *testing.T) {
		got, err := f.summary.GetCategoryBreakdown(ctx, f.user.ID, models.RecordTypeExpense, ptr(2020), nil)
		testutil.AssertNoError(t, err)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.summary.GetCategoryBreakdown(ctx, f.user.ID, "transfer", nil, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = f.summary.GetCategoryBreakdown(ctx, f.user.ID, models.RecordTypeExpense, nil, ptr(3))
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = f.summary.GetCategoryBreakdown(ctx, f.user.ID, models.RecordTypeExpense, ptr(2024), ptr(13))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetMonthlyTrend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedMarchLedger(t)
	testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeExpense, "75", "Travel", day(2023, time.December, 20))

	t.Run("default_six_months", func(t *testing.T) {
		got, err := f.summary.GetMonthlyTrend(ctx, f.user.ID, 0)
		testutil.AssertNoError(t, err)
		if len(got) != 6 {
			t.Fatalf("expected 6 months, got %d", len(got))
		}
		if got[0].Year != 2023 || got[0].Month != 10 {
			t.Errorf("expected to start at 2023-10, got %d-%d", got[0].Year, got[0].Month)
		}
		last := got[5]
		if last.Year != 2024 || last.Month != 3 {
			t.Errorf("expected to end at 2024-03, got %d-%d", last.Year, last.Month)
		}
		assertAmount(t, "march balance", last.Balance, "3300")
		assertAmount(t, "december expense", got[2].Expense, "75")
		assertAmount(t, "january expense", got[3].Expense, "0")
	})

	t.Run("boundary_instants", func(t *testing.T) {
		f := newFixture(t)
		w := ledger.MonthWindow(2024, time.March, time.UTC)
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "1", "x", w.Start)
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "2", "x", w.End)
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "4", "x", w.Start.Add(-time.Microsecond))
		testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "8", "x", w.End.Add(time.Microsecond))

		got, err := f.summary.GetMonthlyTrend(ctx, f.user.ID, 2)
		testutil.AssertNoError(t, err)
		assertAmount(t, "february income", got[0].Income, "4")
		assertAmount(t, "march income", got[1].Income, "3")
	})

	t.Run("bounds", func(t *testing.T) {
		got, err := f.summary.GetMonthlyTrend(ctx, f.user.ID, 24)
		testutil.AssertNoError(t, err)
		if len(got) != 24 {
			t.Errorf("expected 24 months, got %d", len(got))
		}

		for _, months := range []int{-1, 25} {
			_, err := f.summary.GetMonthlyTrend(ctx, f.user.ID, months)
			testutil.AssertAppError(t, err, "INVALID_INPUT")
		}
	})
}

// seedRandomLedger stores n reproducible records spread from January 2023
// through the fixture's current month, including instants on month edges.
func (f *fixture) seedRandomLedger(t *testing.T, seed int64, n int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	categories := []string{"Housing", "Food & Dining", "Transport", "Salary", "Entertainment"}
	for i := 0; i < n; i++ {
		recordType := models.RecordTypeExpense
		if rng.Intn(3) == 0 {
			recordType = models.RecordTypeIncome
		}
		amount := decimal.NewFromInt(int64(rng.Intn(500000) + 1)).Shift(-2)

		first := time.Date(2023, time.January+time.Month(rng.Intn(15)), 1, 0, 0, 0, 0, time.UTC)
		month := ledger.MonthWindow(first.Year(), first.Month(), time.UTC)
		var date time.Time
		switch rng.Intn(4) {
		case 0:
			date = month.Start
		case 1:
			date = month.End
		default:
			date = month.Start.Add(time.Duration(rng.Int63n(int64(month.End.Sub(month.Start)))))
		}
		if date.After(midMarch) {
			date = midMarch
		}

		testutil.CreateTestRecord(t, f.db, f.user.ID, recordType, amount.String(), categories[rng.Intn(len(categories))], date)
	}
}

func TestSummaryConsistency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedRandomLedger(t, 42, 80)

	balance, err := f.summary.GetBalance(ctx, f.user.ID)
	testutil.AssertNoError(t, err)

	t.Run("breakdown_sums_to_balance", func(t *testing.T) {
		var records int64
		for _, tt := range []struct {
			recordType models.RecordType
			want       decimal.Decimal
		}{
			{recordType: models.RecordTypeIncome, want: balance.Income},
			{recordType: models.RecordTypeExpense, want: balance.Expense},
		} {
			rows, err := f.summary.GetCategoryBreakdown(ctx, f.user.ID, tt.recordType, nil, nil)
			testutil.AssertNoError(t, err)

			sum := decimal.Zero
			for _, row := range rows {
				sum = sum.Add(row.Total)
				records += row.Count
			}
			assertAmount(t, string(tt.recordType)+" breakdown total", sum, tt.want.String())
		}
		if records != 80 {
			t.Errorf("expected breakdown counts to cover 80 records, got %d", records)
		}
	})

	t.Run("months_sum_to_year", func(t *testing.T) {
		income, expense := decimal.Zero, decimal.Zero
		for month := 1; month <= 12; month++ {
			got, err := f.summary.GetMonthlySummary(ctx, f.user.ID, 2023, month)
			testutil.AssertNoError(t, err)
			assertAmount(t, "monthly balance", got.Balance, got.Income.Sub(got.Expense).String())
			income = income.Add(got.Income)
			expense = expense.Add(got.Expense)
		}

		for _, tt := range []struct {
			recordType models.RecordType
			want       decimal.Decimal
		}{
			{recordType: models.RecordTypeIncome, want: income},
			{recordType: models.RecordTypeExpense, want: expense},
		} {
			rows, err := f.summary.GetCategoryBreakdown(ctx, f.user.ID, tt.recordType, ptr(2023), nil)
			testutil.AssertNoError(t, err)
			sum := decimal.Zero
			for _, row := range rows {
				sum = sum.Add(row.Total)
			}
			assertAmount(t, "2023 "+string(tt.recordType), sum, tt.want.String())
		}
	})

	t.Run("trend_matches_monthly_summaries", func(t *testing.T) {
		trend, err := f.summary.GetMonthlyTrend(ctx, f.user.ID, 15)
		testutil.AssertNoError(t, err)
		if len(trend) != 15 {
			t.Fatalf("expected 15 months, got %d", len(trend))
		}

		income, expense := decimal.Zero, decimal.Zero
		for _, got := range trend {
			want, err := f.summary.GetMonthlySummary(ctx, f.user.ID, got.Year, got.Month)
			testutil.AssertNoError(t, err)
			label := fmt.Sprintf("%d-%02d", got.Year, got.Month)
			assertAmount(t, label+" income", got.Income, want.Income.String())
			assertAmount(t, label+" expense", got.Expense, want.Expense.String())
			assertAmount(t, label+" balance", got.Balance, want.Balance.String())
			income = income.Add(got.Income)
			expense = expense.Add(got.Expense)
		}

		// Every seeded record falls between January 2023 and now.
		assertAmount(t, "trend income", income, balance.Income.String())
		assertAmount(t, "trend expense", expense, balance.Expense.String())
	})
}
