package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/events"
	"fintrack/internal/handlers"
	"fintrack/internal/identity"
	"fintrack/internal/ledger"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
	"fintrack/internal/testutil"
	"fintrack/internal/validator"
)

// fixedNow is Wednesday 13 March 2024. Every app built here sees this as the
// current time so budget windows are predictable.
var fixedNow = time.Date(2024, time.March, 13, 15, 30, 0, 0, time.UTC)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB        *gorm.DB
	Router    *gin.Engine
	Publisher *recordingPublisher
}

// recordingPublisher keeps every published alert in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	alerts []events.BudgetAlert
}

func (p *recordingPublisher) PublishBudgetAlert(_ context.Context, alert *events.BudgetAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, *alert)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.BudgetAlert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.BudgetAlert(nil), p.alerts...)
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack with JWT auth backed by an
// isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	tokens := identity.NewJWTProvider("integration-secret", time.Hour)
	return buildApp(t, tokens, tokens, time.UTC)
}

// setupZonedApp is setupApp with the calendar in loc.
func setupZonedApp(t *testing.T, loc *time.Location) *testApp {
	t.Helper()
	tokens := identity.NewJWTProvider("integration-secret", time.Hour)
	return buildApp(t, tokens, tokens, loc)
}

// setupStaticApp serves every request as userID without any token.
func setupStaticApp(t *testing.T, userID string) *testApp {
	t.Helper()
	return buildApp(t, identity.NewStaticProvider(userID), nil, time.UTC)
}

func buildApp(t *testing.T, provider identity.Provider, tokens handlers.TokenIssuer, loc *time.Location) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	publisher := &recordingPublisher{}
	cal := ledger.Calendar{WeekStart: time.Sunday, Location: loc, Clock: func() time.Time { return fixedNow }}

	// Services
	reconciler := services.NewReconciler(db, publisher)
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	recordService := services.NewRecordService(db, reconciler, cal)
	budgetService := services.NewBudgetService(db, reconciler, cal)
	summaryService := services.NewSummaryService(db, cal)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, tokens)
	recordHandler := handlers.NewRecordHandler(recordService, auditService, cal)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	summaryHandler := handlers.NewSummaryHandler(summaryService, cal)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	if tokens != nil {
		auth := v1.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	protected := v1.Group("/")
	protected.Use(middleware.Authenticate(provider))

	protected.GET("/profile", authHandler.GetProfile)

	records := protected.Group("/records")
	records.POST("", recordHandler.CreateRecord)
	records.GET("", recordHandler.GetRecords)
	records.GET("/export", recordHandler.ExportRecords)
	records.GET("/:id", recordHandler.GetRecord)
	records.PUT("/:id", recordHandler.UpdateRecord)
	records.DELETE("/:id", recordHandler.DeleteRecord)

	summary := protected.Group("/summary")
	summary.GET("/balance", summaryHandler.GetBalance)
	summary.GET("/monthly", summaryHandler.GetMonthlySummary)
	summary.GET("/categories", summaryHandler.GetCategoryBreakdown)
	summary.GET("/trend", summaryHandler.GetMonthlyTrend)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/overview", budgetHandler.GetBudgetOverview)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.PATCH("/:id/toggle", budgetHandler.ToggleBudget)

	return &testApp{DB: db, Router: router, Publisher: publisher}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

// loginUser logs in and returns the token.
func (app *testApp) loginUser(t *testing.T, email, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["token"].(string)
}

// createRecord posts a record and returns its ID.
func (app *testApp) createRecord(t *testing.T, token, recordType, amount, category, date string) string {
	t.Helper()
	body := fmt.Sprintf(`{"description":"%s %s","amount":%q,"type":%q,"category":%q,"date":%q}`,
		category, amount, amount, recordType, category, date)
	rec := app.request("POST", "/api/v1/records", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create record failed: %d %s", rec.Code, rec.Body.String())
	}
	record := parseJSON(t, rec)["record"].(map[string]interface{})
	return record["id"].(string)
}

// createBudget posts a budget and returns it.
func (app *testApp) createBudget(t *testing.T, token, category, amount, period string) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"category":%q,"budget_amount":%q,"period":%q}`, category, amount, period)
	rec := app.request("POST", "/api/v1/budgets", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["budget"].(map[string]interface{})
}

// assertDecimal compares a JSON decimal field with want, ignoring scale.
func assertDecimal(t *testing.T, got interface{}, want, field string) {
	t.Helper()
	s, ok := got.(string)
	if !ok {
		t.Fatalf("%s: expected decimal string, got %T %v", field, got, got)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("%s: invalid decimal %q: %v", field, s, err)
	}
	if !d.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: expected %s, got %s", field, want, s)
	}
}

// errorCode extracts error.code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	return errObj["code"].(string)
}
