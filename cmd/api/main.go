package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/events"
	"fintrack/internal/handlers"
	"fintrack/internal/identity"
	"fintrack/internal/ledger"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
	"fintrack/internal/validator"

	_ "fintrack/internal/docs" // Import swagger docs
)

// @title           Fintrack API
// @version         1.0
// @description     Fintrack records income and expenses, tracks spending against category budgets and reports balances and trends.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	publisher, err := newPublisher(appConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnf("event publisher close error: %v", err)
		}
	}()

	validator.Register()

	cal := ledger.Calendar{WeekStart: appConfig.WeekStart, Location: appConfig.Location}

	// Initialize services
	db := dbManager.DB()
	reconciler := services.NewReconciler(db, publisher)
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	recordService := services.NewRecordService(db, reconciler, cal)
	budgetService := services.NewBudgetService(db, reconciler, cal)
	summaryService := services.NewSummaryService(db, cal)

	// Identity
	var provider identity.Provider
	var tokens *identity.JWTProvider
	switch appConfig.AuthMode {
	case config.AuthModeStatic:
		log.Warnf("AUTH_MODE=static: every request is served as user %s", appConfig.StaticUserID)
		provider = identity.NewStaticProvider(appConfig.StaticUserID)
	default:
		tokens = identity.NewJWTProvider(appConfig.JWTSecret, appConfig.JWTExpirationDur)
		provider = tokens
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokens)
	recordHandler := handlers.NewRecordHandler(recordService, auditService, cal)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	summaryHandler := handlers.NewSummaryHandler(summaryService, cal)

	if appConfig.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(appConfig.CORSOrigin))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	if tokens != nil {
		auth := v1.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.Authenticate(provider))

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Record routes
	records := protected.Group("/records")
	records.POST("", recordHandler.CreateRecord)
	records.GET("", recordHandler.GetRecords)
	records.GET("/export", recordHandler.ExportRecords)
	records.GET("/:id", recordHandler.GetRecord)
	records.PUT("/:id", recordHandler.UpdateRecord)
	records.DELETE("/:id", recordHandler.DeleteRecord)

	// Summary routes
	summary := protected.Group("/summary")
	summary.GET("/balance", summaryHandler.GetBalance)
	summary.GET("/monthly", summaryHandler.GetMonthlySummary)
	summary.GET("/categories", summaryHandler.GetCategoryBreakdown)
	summary.GET("/trend", summaryHandler.GetMonthlyTrend)

	// Budget routes
	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/overview", budgetHandler.GetBudgetOverview)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.PATCH("/:id/toggle", budgetHandler.ToggleBudget)

	log.Infof("Starting Fintrack backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

// newPublisher connects to the broker when AMQP_URL is set. Without it
// budget alerts are dropped.
func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		logger.Get().Info("AMQP_URL not set, budget alerts are disabled")
		return events.Nop{}, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}
	return publisher, nil
}
