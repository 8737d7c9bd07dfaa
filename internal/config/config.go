package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	// HTTP Server
	Port         string
	RateLimitRPM int

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Google Sheets expense store
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Notifications
	Notifier      string
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	TelegramToken string

	// Alert pipeline
	Currency       string
	AlertTimezone  string
	AlertIOTimeout time.Duration
	AlertRetries   int

	// Budget cache
	BudgetCacheSize int
	BudgetCacheTTL  time.Duration
}

var (
	validBackends  = []string{"memory", "sqlite", "sheets"}
	validNotifiers = []string{"none", "amqp", "telegram"}
)

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 120),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetwatch.db"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Expenses"),

		Notifier:      getEnv("NOTIFIER", "none"),
		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "budgetwatch"),
		AMQPQueue:     getEnv("AMQP_QUEUE", "budget_alerts"),
		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),

		Currency:       getEnv("CURRENCY", "RWF"),
		AlertTimezone:  getEnv("ALERT_TIMEZONE", "UTC"),
		AlertIOTimeout: getEnvDuration("ALERT_IO_TIMEOUT", 10*time.Second),
		AlertRetries:   getEnvInt("ALERT_CAS_RETRIES", 3),

		BudgetCacheSize: getEnvInt("BUDGET_CACHE_SIZE", 256),
		BudgetCacheTTL:  getEnvDuration("BUDGET_CACHE_TTL", 5*time.Minute),
	}
}

// Location resolves AlertTimezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AlertTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// The sheets backend keeps budgets, history and inbox in SQLite.
	if c.DataBackend == "sqlite" || c.DataBackend == "sheets" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite or sheets backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
	}

	if !slices.Contains(validNotifiers, c.Notifier) {
		errors = append(errors, fmt.Sprintf("invalid notifier '%s': must be one of %v", c.Notifier, validNotifiers))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.Notifier {
	case "amqp":
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP URL is required when using amqp notifier")
		}
	case "telegram":
		if strings.TrimSpace(c.TelegramToken) == "" {
			errors = append(errors, "Telegram bot token is required when using telegram notifier")
		}
	}

	if _, err := time.LoadLocation(c.AlertTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid alert timezone '%s': %v", c.AlertTimezone, err))
	}

	if c.AlertIOTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid alert I/O timeout %v: must be at least 100ms", c.AlertIOTimeout))
	} else if c.AlertIOTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid alert I/O timeout %v: must be at most 2 minutes", c.AlertIOTimeout))
	}

	if c.AlertRetries < 1 || c.AlertRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid alert CAS retries %d: must be between 1 and 10", c.AlertRetries))
	}

	if c.BudgetCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid budget cache size %d: must be at least 1", c.BudgetCacheSize))
	}
	if c.BudgetCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid budget cache TTL %v: must be at least 1 second", c.BudgetCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
