package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fintrack/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email and the
// password "password123".
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestRecord stores a record directly, bypassing the services, so
// no budget is reconciled.
func CreateTestRecord(t *testing.T, db *gorm.DB, userID string, recordType models.RecordType, amount, category string, date time.Time) *models.Record {
	t.Helper()

	record := &models.Record{
		UserID:        userID,
		Description:   fmt.Sprintf("Test Record %d", nextID()),
		Amount:        decimal.RequireFromString(amount),
		Type:          recordType,
		Category:      category,
		Date:          date,
		PaymentMethod: models.PaymentMethodCash,
		Tags:          models.Tags{},
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test record: %v", err)
	}
	return record
}

// CreateTestBudget stores an active monthly budget over [start, end]
// with a zero spent amount.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, category, amount string, start, end time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:         userID,
		Category:       category,
		BudgetAmount:   decimal.RequireFromString(amount),
		SpentAmount:    decimal.Zero,
		Period:         models.BudgetPeriodMonthly,
		StartDate:      start,
		EndDate:        end,
		IsActive:       true,
		AlertThreshold: models.DefaultAlertThreshold,
		Color:          models.DefaultBudgetColor,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
