package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Ledger backends.
const (
	BackendExcel    = "excel"
	BackendSheets   = "sheets"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Vision providers.
const (
	VisionOpenAI = "openai"
	VisionGemini = "gemini"
)

// Media credential orders.
const (
	MediaAuthFirst = "auth-first"
	MediaNoneFirst = "none-first"
)

var (
	validBackends  = []string{BackendExcel, BackendSheets, BackendSQLite, BackendPostgres, BackendMemory}
	validProviders = []string{VisionOpenAI, VisionGemini}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Ledger
	LedgerBackend string
	ExcelFile     string
	SQLiteDBPath  string
	PostgresURL   string

	// Google Sheets
	GoogleSheetID            string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Vision model
	VisionProvider  string
	VisionAPIKey    string
	VisionBaseURL   string
	VisionModel     string
	VisionMaxTokens int

	// Messaging provider
	TwilioAccountSID        string
	TwilioAuthToken         string
	TwilioValidateSignature bool
	PublicWebhookURL        string
	MediaAuthOrder          string

	HTTPTimeout        time.Duration
	RateLimitPerMinute int

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Document archive (optional)
	ArchiveBucket string

	// Worker
	MirrorBackend string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "5000"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", BackendExcel)),
		ExcelFile:     getEnv("EXCEL_FILE", "masraflar.xlsx"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/masraf.db"),
		PostgresURL:   getEnv("POSTGRES_URL", getEnv("DATABASE_URL", "")),

		GoogleSheetID:            getEnv("GOOGLE_SHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		VisionProvider:  strings.ToLower(getEnv("VISION_PROVIDER", VisionOpenAI)),
		VisionAPIKey:    getEnv("VISION_API_KEY", ""),
		VisionBaseURL:   getEnv("VISION_BASE_URL", ""),
		VisionModel:     getEnv("VISION_MODEL", ""),
		VisionMaxTokens: getEnvInt("VISION_MAX_TOKENS", 1024),

		TwilioAccountSID:        getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:         getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioValidateSignature: getEnvBool("TWILIO_VALIDATE_SIGNATURE", false),
		PublicWebhookURL:        getEnv("PUBLIC_WEBHOOK_URL", ""),
		MediaAuthOrder:          strings.ToLower(getEnv("MEDIA_AUTH_ORDER", MediaAuthFirst)),

		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "masraf"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_rows"),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),

		MirrorBackend: strings.ToLower(getEnv("MIRROR_BACKEND", BackendSheets)),
	}
}

// Validate checks the settings the webhook service needs and reports every
// problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	errors = append(errors, c.validateBackend(c.LedgerBackend, "ledger")...)

	if !slices.Contains(validProviders, c.VisionProvider) {
		errors = append(errors, fmt.Sprintf("invalid vision provider '%s': must be one of %v", c.VisionProvider, validProviders))
	}
	if c.VisionAPIKey == "" {
		errors = append(errors, "VISION_API_KEY is required")
	}
	if c.VisionMaxTokens < 1 {
		errors = append(errors, fmt.Sprintf("invalid vision max tokens %d: must be at least 1", c.VisionMaxTokens))
	}
	if c.VisionBaseURL != "" {
		if u, err := url.Parse(c.VisionBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid vision base URL '%s': must be http or https", c.VisionBaseURL))
		}
	}

	if c.MediaAuthOrder != MediaAuthFirst && c.MediaAuthOrder != MediaNoneFirst {
		errors = append(errors, fmt.Sprintf("invalid media auth order '%s': must be '%s' or '%s'", c.MediaAuthOrder, MediaAuthFirst, MediaNoneFirst))
	}
	if c.TwilioValidateSignature {
		if c.TwilioAuthToken == "" {
			errors = append(errors, "TWILIO_AUTH_TOKEN is required when signature validation is enabled")
		}
		if c.PublicWebhookURL == "" {
			errors = append(errors, "PUBLIC_WEBHOOK_URL is required when signature validation is enabled")
		}
	}

	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	} else if c.HTTPTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at most 10 minutes", c.HTTPTimeout))
	}
	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	errors = append(errors, c.validateAMQP()...)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the mirror worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the mirror worker")
	}
	errors = append(errors, c.validateAMQP()...)
	errors = append(errors, c.validateBackend(c.MirrorBackend, "mirror")...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateBackend(backend, role string) []string {
	var errors []string
	if !slices.Contains(validBackends, backend) {
		return []string{fmt.Sprintf("invalid %s backend '%s': must be one of %v", role, backend, validBackends)}
	}
	switch backend {
	case BackendExcel:
		if strings.TrimSpace(c.ExcelFile) == "" {
			errors = append(errors, "EXCEL_FILE cannot be empty when using excel backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if u, err := url.Parse(c.PostgresURL); c.PostgresURL == "" || err != nil {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid POSTGRES_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	case BackendSheets:
		if c.GoogleSheetID == "" {
			errors = append(errors, "GOOGLE_SHEET_ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" && c.GoogleServiceAccountJSON == "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}
	return errors
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
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
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
