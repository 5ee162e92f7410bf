package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RecordType is the direction of a record. Amounts are always positive; the
// sign is implied by the type.
type RecordType string

const (
	RecordTypeIncome  RecordType = "income"
	RecordTypeExpense RecordType = "expense"
)

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	return t == RecordTypeIncome || t == RecordTypeExpense
}

// PaymentMethod is informational only and never affects aggregates.
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodCreditCard    PaymentMethod = "credit_card"
	PaymentMethodDebitCard     PaymentMethod = "debit_card"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodDigitalWallet PaymentMethod = "digital_wallet"
	PaymentMethodOther         PaymentMethod = "other"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodDigitalWallet, PaymentMethodOther:
		return true
	}
	return false
}

// RecurringFrequency applies only to records flagged as recurring.
type RecurringFrequency string

const (
	RecurringDaily   RecurringFrequency = "daily"
	RecurringWeekly  RecurringFrequency = "weekly"
	RecurringMonthly RecurringFrequency = "monthly"
	RecurringYearly  RecurringFrequency = "yearly"
)

// Valid reports whether f is a known recurring frequency.
func (f RecurringFrequency) Valid() bool {
	switch f {
	case RecurringDaily, RecurringWeekly, RecurringMonthly, RecurringYearly:
		return true
	}
	return false
}

// Field bounds shared by request binding and service validation.
const (
	MaxDescriptionLength = 200
	MaxCategoryLength    = 50
	MaxNotesLength       = 500
	MaxTags              = 10
	MaxTagLength         = 30

	// Amounts are stored as decimal(15,2).
	AmountScale     = 2
	MaxAmountDigits = 13
)

// Tags is a set of labels stored as a JSON array in a text column so the
// same schema works on postgres and sqlite.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into Tags", value)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*t = out
	return nil
}

// Record is a single dated income or expense entry owned by a user.
type Record struct {
	Base
	UserID             string              `gorm:"type:uuid;not null;index:idx_records_user_date,priority:1" json:"user_id"`
	Description        string              `gorm:"size:200;not null" json:"description"`
	Amount             decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"amount"`
	Type               RecordType          `gorm:"size:10;not null;index" json:"type"`
	Category           string              `gorm:"size:50;not null;index" json:"category"`
	Date               time.Time           `gorm:"not null;index:idx_records_user_date,priority:2" json:"date"`
	PaymentMethod      PaymentMethod       `gorm:"size:20;not null" json:"payment_method"`
	Tags               Tags                `gorm:"type:text" json:"tags"`
	Notes              string              `gorm:"size:500" json:"notes,omitempty"`
	IsRecurring        bool                `gorm:"not null" json:"is_recurring"`
	RecurringFrequency *RecurringFrequency `gorm:"size:10" json:"recurring_frequency,omitempty"`
}

// IsExpense reports whether the record counts toward budgets.
func (r *Record) IsExpense() bool {
	return r.Type == RecordTypeExpense
}
