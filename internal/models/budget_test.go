package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBudgetDerivedFields(t *testing.T) {
	tests := []struct {
		name          string
		budget        string
		spent         string
		threshold     int
		wantRemaining string
		wantPct       float64
		wantStatus    BudgetStatus
	}{
		{name: "untouched", budget: "600", spent: "0", threshold: 80, wantRemaining: "600", wantPct: 0, wantStatus: BudgetStatusGood},
		{name: "below_threshold", budget: "600", spent: "300", threshold: 80, wantRemaining: "300", wantPct: 50, wantStatus: BudgetStatusGood},
		{name: "at_threshold", budget: "100", spent: "80", threshold: 80, wantRemaining: "20", wantPct: 80, wantStatus: BudgetStatusWarning},
		{name: "above_threshold", budget: "600", spent: "500", threshold: 80, wantRemaining: "100", wantPct: 83.33, wantStatus: BudgetStatusWarning},
		{name: "exactly_spent", budget: "600", spent: "600", threshold: 80, wantRemaining: "0", wantPct: 100, wantStatus: BudgetStatusExceeded},
		{name: "overspent_clamps_remaining", budget: "600", spent: "750", threshold: 80, wantRemaining: "0", wantPct: 125, wantStatus: BudgetStatusExceeded},
		{name: "zero_budget", budget: "0", spent: "50", threshold: 80, wantRemaining: "0", wantPct: 0, wantStatus: BudgetStatusGood},
		{name: "zero_threshold_warns_immediately", budget: "100", spent: "0", threshold: 0, wantRemaining: "100", wantPct: 0, wantStatus: BudgetStatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Budget{
				BudgetAmount:   decimal.RequireFromString(tt.budget),
				SpentAmount:    decimal.RequireFromString(tt.spent),
				AlertThreshold: tt.threshold,
			}
			if got := b.RemainingAmount(); !got.Equal(decimal.RequireFromString(tt.wantRemaining)) {
				t.Errorf("remaining = %s, want %s", got, tt.wantRemaining)
			}
			if got := b.PercentageSpent(); got != tt.wantPct {
				t.Errorf("percentage = %v, want %v", got, tt.wantPct)
			}
			if got := b.Status(); got != tt.wantStatus {
				t.Errorf("status = %s, want %s", got, tt.wantStatus)
			}
		})
	}
}

func TestBudgetScope(t *testing.T) {
	if _, ok := ScopeFor(OverallBudgetCategory).(AllCategories); !ok {
		t.Errorf("expected %q to map to AllCategories", OverallBudgetCategory)
	}

	scope, ok := ScopeFor("Food & Dining").(CategoryScope)
	if !ok {
		t.Fatal("expected CategoryScope for a regular label")
	}
	if scope.Name != "Food & Dining" {
		t.Errorf("expected scope name Food & Dining, got %q", scope.Name)
	}

	// The sentinel match is exact.
	if _, ok := ScopeFor("overall budget").(CategoryScope); !ok {
		t.Error("expected lowercase label to be an ordinary category")
	}
}

func TestBudgetMarshalJSON(t *testing.T) {
	b := Budget{
		Base:           Base{ID: "b1"},
		Category:       "Food & Dining",
		BudgetAmount:   decimal.NewFromInt(600),
		SpentAmount:    decimal.NewFromInt(500),
		Period:         BudgetPeriodMonthly,
		IsActive:       true,
		AlertThreshold: 80,
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if out["id"] != "b1" {
		t.Errorf("expected id b1, got %v", out["id"])
	}
	if out["status"] != string(BudgetStatusWarning) {
		t.Errorf("expected warning status, got %v", out["status"])
	}
	if out["remaining_amount"] != "100" {
		t.Errorf("expected remaining 100, got %v", out["remaining_amount"])
	}
	if out["percentage_spent"].(float64) != 83.33 {
		t.Errorf("expected 83.33%%, got %v", out["percentage_spent"])
	}
	if out["category"] != "Food & Dining" {
		t.Errorf("expected category in payload, got %v", out["category"])
	}
}

func TestTagsValueScan(t *testing.T) {
	v, err := Tags{"rent", "fixed"}.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}
	if v != `["rent","fixed"]` {
		t.Errorf("unexpected stored form %v", v)
	}

	var tags Tags
	if err := tags.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("unexpected tags %v", tags)
	}

	if err := tags.Scan(nil); err != nil {
		t.Fatalf("scan nil failed: %v", err)
	}
	if tags == nil || len(tags) != 0 {
		t.Errorf("expected empty non-nil tags, got %#v", tags)
	}

	if err := tags.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}
