package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rentalops/meterbot/pkg/storage/receipts"
)

// Config holds all application configuration.
type Config struct {
	Telegram TelegramConfig

	Sheets SheetsConfig

	// Receipts is the object-store configuration for receipt photos.
	Receipts receipts.Config

	State StateConfig

	Reminders ReminderConfig

	Observability ObservabilityConfig
}

// TelegramConfig holds the bot credentials and the owner identity.
type TelegramConfig struct {
	Token string

	// OwnerID is the Telegram user ID allowed to run the owner-only
	// commands in addition to any tenant flagged as owner in the sheet.
	OwnerID int64
}

// SheetsConfig holds the Google Sheets backend configuration.
type SheetsConfig struct {
	SpreadsheetID string

	// CredentialsJSON is the raw service-account key JSON.
	CredentialsJSON string
}

// StateConfig selects the conversation state backend. With no Redis URL
// sessions are kept in process memory and do not survive a restart.
type StateConfig struct {
	RedisURL string
	TTL      time.Duration
}

// ReminderConfig holds the daily reminder schedule.
type ReminderConfig struct {
	// Hour is the local hour (0-23) at which the daily reminder run
	// fires.
	Hour int
}

// ObservabilityConfig holds logging, health server and OpenTelemetry
// settings.
type ObservabilityConfig struct {
	LogLevel   string
	HealthPort string

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from the environment, reading a .env
// file first when one is present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:   getEnv("METERBOT_TELEGRAM_TOKEN", ""),
			OwnerID: getEnvInt64("METERBOT_OWNER_ID", 0),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   getEnv("METERBOT_SPREADSHEET_ID", ""),
			CredentialsJSON: getEnv("METERBOT_GOOGLE_CREDENTIALS_JSON", ""),
		},
		Receipts: receipts.Config{
			Endpoint:      getEnv("METERBOT_S3_ENDPOINT", ""),
			Region:        getEnv("METERBOT_S3_REGION", "auto"),
			Bucket:        getEnv("METERBOT_S3_BUCKET", ""),
			AccessKey:     getEnv("METERBOT_S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("METERBOT_S3_SECRET_KEY", ""),
			UsePathStyle:  getEnvBool("METERBOT_S3_USE_PATH_STYLE", true),
			PublicBaseURL: getEnv("METERBOT_S3_PUBLIC_URL", ""),
		},
		State: StateConfig{
			RedisURL: getEnv("METERBOT_REDIS_URL", ""),
			TTL:      getEnvDuration("METERBOT_STATE_TTL", 30*time.Minute),
		},
		Reminders: ReminderConfig{
			Hour: getEnvInt("METERBOT_REMINDER_HOUR", 10),
		},
		Observability: ObservabilityConfig{
			LogLevel:   getEnv("METERBOT_LOG_LEVEL", "info"),
			HealthPort: getEnv("METERBOT_HEALTH_PORT", "9090"),

			OTelEnabled:        getEnvBool("METERBOT_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("METERBOT_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("METERBOT_OTEL_SERVICE_NAME", "meterbot"),
			OTelServiceVersion: getEnv("METERBOT_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("METERBOT_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration, reporting every missing required
// value at once.
func (c *Config) Validate() error {
	var missing []string

	if c.Telegram.Token == "" {
		missing = append(missing, "METERBOT_TELEGRAM_TOKEN")
	}
	if c.Telegram.OwnerID == 0 {
		missing = append(missing, "METERBOT_OWNER_ID")
	}
	if c.Sheets.SpreadsheetID == "" {
		missing = append(missing, "METERBOT_SPREADSHEET_ID")
	}
	if c.Sheets.CredentialsJSON == "" {
		missing = append(missing, "METERBOT_GOOGLE_CREDENTIALS_JSON")
	}
	if c.Receipts.Bucket == "" {
		missing = append(missing, "METERBOT_S3_BUCKET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Reminders.Hour < 0 || c.Reminders.Hour > 23 {
		return fmt.Errorf("reminder hour must be between 0 and 23, got %d", c.Reminders.Hour)
	}
	if c.State.TTL <= 0 {
		return fmt.Errorf("state TTL must be positive, got %s", c.State.TTL)
	}
	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("opentelemetry endpoint is required when enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
