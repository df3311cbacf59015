package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Log       LogConfig
	Server    ServerConfig
	Catalog   CatalogConfig
	Position  PositionConfig
	Sync      SyncConfig
	Session   SessionConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string
	Development bool
}

// ServerConfig holds options for the local view API.
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// CatalogConfig points at the catalog/order service.
type CatalogConfig struct {
	BaseURL        string
	Timeout        time.Duration
	SearchDebounce time.Duration
}

// PositionConfig configures the device and IP position sources.
type PositionConfig struct {
	DeviceURL     string
	DeviceLat     float64
	DeviceLon     float64
	DeviceTimeout time.Duration
	IPLookupURL   string
	IPTimeout     time.Duration
}

// HasStaticFix reports whether a fixed device position is configured.
func (p PositionConfig) HasStaticFix() bool {
	return p.DeviceLat != 0 && p.DeviceLon != 0
}

// SyncConfig holds live sync channel settings.
type SyncConfig struct {
	WebSocketURL   string
	ReconnectDelay time.Duration
}

// SessionConfig carries the credential issued by the identity provider.
type SessionConfig struct {
	Token  string
	UserID string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// MongoDBConfig holds settings for MongoDB. An empty URI disables the sink.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Both fields empty disables the sink.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	ReportRange     string
}

// Enabled reports whether the Sheets sink is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	var errs []error
	cfg := &Config{
		Log: LogConfig{
			Level:       getenvWithDefault("LOG_LEVEL", "info"),
			Development: os.Getenv("APP_ENV") == "development",
		},
		Server: ServerConfig{
			Port:           getenvWithDefault("APP_PORT", "8080"),
			AllowedOrigins: splitList(getenvWithDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		Catalog: CatalogConfig{
			BaseURL:        getenvWithDefault("CATALOG_BASE_URL", "http://localhost:8000"),
			Timeout:        getDuration("CATALOG_TIMEOUT", "0s", &errs),
			SearchDebounce: getDuration("SEARCH_DEBOUNCE", "300ms", &errs),
		},
		Position: PositionConfig{
			DeviceURL:     os.Getenv("DEVICE_LOCATION_URL"),
			DeviceLat:     getFloat("DEVICE_LATITUDE", &errs),
			DeviceLon:     getFloat("DEVICE_LONGITUDE", &errs),
			DeviceTimeout: getDuration("DEVICE_LOCATION_TIMEOUT", "5s", &errs),
			IPLookupURL:   getenvWithDefault("IP_GEOLOCATION_URL", "https://ipapi.co"),
			IPTimeout:     getDuration("IP_GEOLOCATION_TIMEOUT", "0s", &errs),
		},
		Sync: SyncConfig{
			WebSocketURL:   getenvWithDefault("SYNC_WS_URL", "ws://localhost:8000/ws"),
			ReconnectDelay: getDuration("SYNC_RECONNECT_DELAY", "3s", &errs),
		},
		Session: SessionConfig{
			Token:  os.Getenv("SESSION_TOKEN"),
			UserID: os.Getenv("SESSION_USER_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "*/15 * * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "vendsync"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_REPORT_ID"),
			ReportRange:     getenvWithDefault("GOOGLE_SHEET_REPORT_RANGE", "SyncReports!A:L"),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if len(c.Server.AllowedOrigins) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	if c.Catalog.BaseURL == "" {
		return errors.New("CATALOG_BASE_URL must not be empty")
	}

	if c.Catalog.SearchDebounce <= 0 {
		return errors.New("SEARCH_DEBOUNCE must be positive")
	}

	if (c.Position.DeviceLat == 0) != (c.Position.DeviceLon == 0) {
		return errors.New("DEVICE_LATITUDE and DEVICE_LONGITUDE must be provided together")
	}

	if c.Position.DeviceTimeout <= 0 {
		return errors.New("DEVICE_LOCATION_TIMEOUT must be positive")
	}

	if c.Position.IPLookupURL == "" {
		return errors.New("IP_GEOLOCATION_URL must not be empty")
	}

	if c.Sync.WebSocketURL == "" {
		return errors.New("SYNC_WS_URL must not be empty")
	}

	if c.Sync.ReconnectDelay <= 0 {
		return errors.New("SYNC_RECONNECT_DELAY must be positive")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_REPORT_ID must be provided together")
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided when MONGODB_URI is set")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key, fallback string, errs *[]error) time.Duration {
	raw := getenvWithDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s is not a duration: %w", key, err))
		return 0
	}
	return d
}

func getFloat(key string, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s is not a number: %w", key, err))
		return 0
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
