package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Auth modes understood by the identity layer.
const (
	AuthModeJWT    = "jwt"
	AuthModeStatic = "static"
)

// Config holds application configuration
type Config struct {
	Env string

	// Server
	Port       string
	CORSOrigin string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Identity
	AuthMode         string
	StaticUserID     string
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Calendar rules for budget windows
	WeekStart time.Weekday
	Location  *time.Location

	// Budget alert events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		Port:       getEnv("PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "fintrack"),
		DBPassword: getEnv("DB_PASSWORD", "fintrack"),
		DBName:     getEnv("DB_NAME", "fintrack"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "fintrack.db"),

		AuthMode:     strings.ToLower(getEnv("AUTH_MODE", AuthModeJWT)),
		StaticUserID: getEnv("STATIC_USER_ID", ""),
		JWTSecret:    getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack.events"),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	weekStart, err := ParseWeekStart(getEnv("WEEK_START", "sunday"))
	if err != nil {
		return nil, err
	}
	config.WeekStart = weekStart

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	config.Location = loc

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Validate rejects combinations that must never reach a running server.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeJWT:
	case AuthModeStatic:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=static is not allowed when ENV=production")
		}
		if c.StaticUserID == "" {
			return fmt.Errorf("AUTH_MODE=static requires STATIC_USER_ID")
		}
		if _, err := uuid.Parse(c.StaticUserID); err != nil {
			return fmt.Errorf("STATIC_USER_ID must be a UUID: %w", err)
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q (use jwt or static)", c.AuthMode)
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (use postgres or sqlite)", c.DBDriver)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ParseWeekStart maps a day name to the weekday budget weeks begin on.
// Only sunday and monday are accepted.
func ParseWeekStart(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	}
	return time.Sunday, fmt.Errorf("invalid WEEK_START %q (use sunday or monday)", s)
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
