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

	"demonstrativo/internal/core"
	"demonstrativo/internal/sheets/csvsource"
)

// Backends accepted by DATA_BACKEND
const (
	BackendSheets = "sheets"
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validBackends = []string{BackendSheets, BackendCSV, BackendSQLite, BackendMemory}

// Upstreams the worker may mirror from
var validSyncSources = []string{BackendSheets, BackendCSV}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Report
	StatusPolicy core.StatusPolicy
	// PageSize 0 selects the per-policy default
	PageSize       int
	ReportCacheTTL time.Duration

	// Backend selection
	DataBackend   string
	SourceTimeout time.Duration

	// Google Sheets
	GoogleSpreadsheetID        string
	GoogleSheetName            string
	GoogleServiceAccountJSON   string
	GoogleServiceAccountFile   string
	GoogleApplicationCredsFile string

	// CSV / memory
	CSVSource      string
	MemorySeedFile string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncSource   string
	SyncInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StatusPolicy:   core.StatusPolicy(strings.ToLower(strings.TrimSpace(getEnv("STATUS_POLICY", string(core.StatusExplicit))))),
		PageSize:       getEnvInt("PAGE_SIZE", 0),
		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", time.Minute),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		SourceTimeout: getEnvDuration("SOURCE_TIMEOUT", 15*time.Second),

		GoogleSpreadsheetID:        getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:            getEnv("GOOGLE_SHEET_NAME", "DEMONSTRATIVO"),
		GoogleServiceAccountJSON:   getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:   getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		CSVSource:      getEnv("CSV_SOURCE", ""),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/demonstrativo.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "demonstrativo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_synced"),

		SyncSource:   getEnv("SYNC_SOURCE", BackendSheets),
		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
	}

	return cfg
}

// CSVLocation is CSV_SOURCE, or the gviz export of the configured sheet
// when only a spreadsheet ID is set.
func (c *Config) CSVLocation() string {
	if c.CSVSource != "" {
		return c.CSVSource
	}
	if c.GoogleSpreadsheetID == "" {
		return ""
	}
	return csvsource.GvizURL(c.GoogleSpreadsheetID, c.GoogleSheetName)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if err := c.StatusPolicy.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid status policy '%s': must be one of [explicit presence]", c.StatusPolicy))
	}

	if c.PageSize < 0 || c.PageSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 0 and 1000", c.PageSize))
	}

	if c.ReportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must not be negative", c.ReportCacheTTL))
	}

	if c.SourceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid source timeout %v: must be at least 1 second", c.SourceTimeout))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	case BackendCSV:
		if c.CSVLocation() == "" {
			errors = append(errors, "CSV_SOURCE or GOOGLE_SPREADSHEET_ID is required when using csv backend")
		}
	case BackendMemory:
		if c.MemorySeedFile != "" {
			if _, err := os.Stat(c.MemorySeedFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("memory seed file does not exist: %s", c.MemorySeedFile))
			}
		}
	case BackendSQLite:
		errors = append(errors, c.validateSQLite()...)
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

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings the mirror worker needs on top of
// Validate.
func (c *Config) ValidateWorker() error {
	var errors []string

	errors = append(errors, c.validateSQLite()...)

	switch c.SyncSource {
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	case BackendCSV:
		if c.CSVLocation() == "" {
			errors = append(errors, "CSV_SOURCE or GOOGLE_SPREADSHEET_ID is required when syncing from csv")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid sync source '%s': must be one of %v", c.SyncSource, validSyncSources))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when using sheets backend")
	}

	hasJSON := c.GoogleServiceAccountJSON != ""
	hasFile := c.GoogleServiceAccountFile != ""
	hasADC := c.GoogleApplicationCredsFile != ""
	if !hasJSON && !hasFile && !hasADC {
		errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
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
