package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/events"
	"fintrack/internal/ledger"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func init() {
	logger.Init("test")
}

// midMarch is a Wednesday; every fixture clock is pinned to it.
var midMarch = time.Date(2024, time.March, 13, 15, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func fixedCalendar(now time.Time) ledger.Calendar {
	return ledger.Calendar{
		WeekStart: time.Sunday,
		Location:  time.UTC,
		Clock:     func() time.Time { return now },
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []*events.BudgetAlert
}

func (p *recordingPublisher) PublishBudgetAlert(_ context.Context, alert *events.BudgetAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

// fixture wires the services over a fresh database with the clock pinned
// to midMarch.
type fixture struct {
	db         *gorm.DB
	publisher  *recordingPublisher
	reconciler *Reconciler
	records    RecordServicer
	budgets    BudgetServicer
	summary    SummaryServicer
	user       *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	cal := fixedCalendar(midMarch)
	publisher := &recordingPublisher{}
	reconciler := NewReconciler(db, publisher)

	return &fixture{
		db:         db,
		publisher:  publisher,
		reconciler: reconciler,
		records:    NewRecordService(db, reconciler, cal),
		budgets:    NewBudgetService(db, reconciler, cal),
		summary:    NewSummaryService(db, cal),
		user:       testutil.CreateTestUser(t, db),
	}
}

// seedMarchLedger stores a March 2024 salary, rent and food expense and
// returns the Food & Dining expense.
func (f *fixture) seedMarchLedger(t *testing.T) *models.Record {
	t.Helper()
	testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeIncome, "5000", "Salary", day(2024, time.March, 5))
	testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeExpense, "1200", "Housing", day(2024, time.March, 10))
	return testutil.CreateTestRecord(t, f.db, f.user.ID, models.RecordTypeExpense, "500", "Food & Dining", day(2024, time.March, 15))
}

// storedSpent reloads a budget's spent amount from the database.
func (f *fixture) storedSpent(t *testing.T, budgetID string) decimal.Decimal {
	t.Helper()
	var b models.Budget
	if err := f.db.First(&b, "id = ?", budgetID).Error; err != nil {
		t.Fatalf("failed to reload budget: %v", err)
	}
	return b.SpentAmount
}

func assertAmount(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", label, got, want)
	}
}
