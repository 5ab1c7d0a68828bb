package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Classifier model
	ModelBackend      string
	ModelPath         string
	ModelDBPath       string
	ModelName         string
	CurrencySymbol    string
	ClassifyCacheSize int
	ClassifyCacheTTL  time.Duration

	// AMQP ledger events (optional)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string

	// Ledger mirror worker
	MirrorFlushInterval time.Duration

	// Ledger export
	ExportBackend            string
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

var (
	validModelBackends  = []string{"file", "sqlite"}
	validExportBackends = []string{"memory", "sheets"}
)

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ModelBackend:      getEnv("MODEL_BACKEND", "file"),
		ModelPath:         getEnv("MODEL_PATH", "./data/expense_classifier.gob"),
		ModelDBPath:       getEnv("MODEL_DB_PATH", "./data/models.db"),
		ModelName:         getEnv("MODEL_NAME", "default"),
		CurrencySymbol:    getEnv("CURRENCY_SYMBOL", "₹"),
		ClassifyCacheSize: getEnvInt("CLASSIFY_CACHE_SIZE", 1000),
		ClassifyCacheTTL:  getEnvDuration("CLASSIFY_CACHE_TTL", 30*time.Minute),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "spendsense"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "ledger"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "spendsense.mirror"),

		MirrorFlushInterval: getEnvDuration("MIRROR_FLUSH_INTERVAL", 30*time.Second),

		ExportBackend:            getEnv("EXPORT_BACKEND", "memory"),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if !contains(validModelBackends, c.ModelBackend) {
		errors = append(errors, fmt.Sprintf("invalid model backend '%s': must be one of %v", c.ModelBackend, validModelBackends))
	}
	switch c.ModelBackend {
	case "file":
		if c.ModelPath == "" {
			errors = append(errors, "model path cannot be empty when using file model backend")
		}
	case "sqlite":
		if c.ModelDBPath == "" {
			errors = append(errors, "model database path cannot be empty when using sqlite model backend")
		} else if dir := filepath.Dir(c.ModelDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create model database directory '%s': %v", dir, err))
				}
			}
		}
		if c.ModelName == "" {
			errors = append(errors, "model name cannot be empty when using sqlite model backend")
		}
	}

	if strings.TrimSpace(c.CurrencySymbol) == "" {
		errors = append(errors, "currency symbol cannot be empty")
	}
	if c.ClassifyCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid classify cache size %d: must not be negative", c.ClassifyCacheSize))
	}
	if c.ClassifyCacheSize > 0 && c.ClassifyCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid classify cache ttl %v: must be at least 1 second", c.ClassifyCacheTTL))
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
	}

	if c.MirrorFlushInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror flush interval %v: must be at least 1 second", c.MirrorFlushInterval))
	}

	if !contains(validExportBackends, c.ExportBackend) {
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of %v", c.ExportBackend, validExportBackends))
	}
	if c.ExportBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets export")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets export")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
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
