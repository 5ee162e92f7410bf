package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/ledger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
}

// RecordInput holds the fields of a new record.
type RecordInput struct {
	Description        string
	Amount             decimal.Decimal
	Type               models.RecordType
	Category           string
	Date               *time.Time
	PaymentMethod      models.PaymentMethod
	Tags               []string
	Notes              string
	IsRecurring        bool
	RecurringFrequency *models.RecurringFrequency
}

// RecordUpdate holds a partial record update; nil fields are left unchanged.
type RecordUpdate struct {
	Description        *string
	Amount             *decimal.Decimal
	Type               *models.RecordType
	Category           *string
	Date               *time.Time
	PaymentMethod      *models.PaymentMethod
	Tags               *[]string
	Notes              *string
	IsRecurring        *bool
	RecurringFrequency *models.RecurringFrequency
}

// RecordFilter holds optional filter parameters for listing records.
type RecordFilter struct {
	Type          *models.RecordType
	Category      *string
	FromDate      *time.Time
	ToDate        *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	PaymentMethod *models.PaymentMethod
	Search        string
}

// RecordServicer defines the contract for record-related business logic.
// Every mutation that touches an expense reconciles the affected budgets.
type RecordServicer interface {
	CreateRecord(ctx context.Context, userID string, in RecordInput) (*models.Record, error)
	GetRecordByID(ctx context.Context, userID, recordID string) (*models.Record, error)
	ListRecords(ctx context.Context, userID string, page pagination.PageRequest, filter RecordFilter) (*pagination.PageResponse[models.Record], error)
	UpdateRecord(ctx context.Context, userID, recordID string, in RecordUpdate) (*models.Record, error)
	DeleteRecord(ctx context.Context, userID, recordID string) error
	ExportRecords(ctx context.Context, userID string, filter RecordFilter, w io.Writer) error
}

// BudgetInput holds the fields of a new budget.
type BudgetInput struct {
	Category       string
	BudgetAmount   decimal.Decimal
	Period         models.BudgetPeriod
	AlertThreshold *int
	Color          string
}

// BudgetUpdate holds a partial budget update; nil fields are left unchanged.
type BudgetUpdate struct {
	Category       *string
	BudgetAmount   *decimal.Decimal
	Period         *models.BudgetPeriod
	AlertThreshold *int
	Color          *string
	IsActive       *bool
}

// BudgetOverview totals the active budgets of a user.
type BudgetOverview struct {
	TotalBudgeted  decimal.Decimal `json:"total_budgeted"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	ActiveBudgets  int             `json:"active_budgets"`
	Good           int             `json:"good"`
	Warning        int             `json:"warning"`
	Exceeded       int             `json:"exceeded"`
	Alerts         []models.Budget `json:"alerts"`
}

// BudgetServicer defines the contract for budget-related business logic.
// Reads reconcile each budget before returning it.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	ToggleBudgetActive(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	GetBudgetOverview(ctx context.Context, userID string) (*BudgetOverview, error)
}

// SummaryServicer defines the contract for ledger aggregates.
type SummaryServicer interface {
	GetBalance(ctx context.Context, userID string) (*ledger.Totals, error)
	GetMonthlySummary(ctx context.Context, userID string, year, month int) (*ledger.MonthlySummary, error)
	GetCategoryBreakdown(ctx context.Context, userID string, recordType models.RecordType, year, month *int) ([]ledger.CategoryTotal, error)
	GetMonthlyTrend(ctx context.Context, userID string, months int) ([]ledger.MonthlySummary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
