package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mamadbah2/aquafarm/internal/analytics/period"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	Postgres   PostgresConfig
	MongoDB    MongoDBConfig
	Sheets     SheetsConfig
	WhatsApp   WhatsAppConfig
	Forecaster ForecasterConfig
	Reporting  ReportingConfig
	Alerts     AlertsConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// PostgresConfig points at the farm operational database.
type PostgresConfig struct {
	URL     string
	MaxWait time.Duration
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Sheets integration is disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether a spreadsheet is configured.
func (s SheetsConfig) Enabled() bool { return s.SpreadsheetID != "" }

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API alert sink.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	Recipient     string
}

// Enabled reports whether alert notifications can be delivered.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != "" && w.Recipient != ""
}

// ForecasterConfig points at the optional feeding forecast service.
type ForecasterConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	ScanSchedule     string
	SnapshotSchedule string
	SnapshotPeriod   string
	Timezone         string
}

// AlertsConfig tunes predictive and anomaly alerting.
type AlertsConfig struct {
	DOMin          float64
	AmmoniaMax     float64
	TemperatureMax float64
	PHMin          float64
	PHMax          float64
	Sigma          float64
	LookbackDays   int
	Organizations  []string
}

// LogConfig selects the log verbosity.
type LogConfig struct {
	Level string
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
		_ = godotenv.Load()
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	var errs []error
	dur := func(key, fallback string) time.Duration {
		d, err := time.ParseDuration(getenvWithDefault(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	num := func(key, fallback string) float64 {
		f, err := strconv.ParseFloat(getenvWithDefault(key, fallback), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return f
	}

	lookback, err := strconv.Atoi(getenvWithDefault("ALERT_LOOKBACK_DAYS", "30"))
	if err != nil {
		errs = append(errs, fmt.Errorf("ALERT_LOOKBACK_DAYS: %w", err))
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getenvWithDefault("APP_PORT", "8080"),
			ShutdownTimeout: dur("SHUTDOWN_TIMEOUT", "10s"),
		},
		Postgres: PostgresConfig{
			URL:     os.Getenv("DATABASE_URL"),
			MaxWait: dur("DATABASE_MAX_WAIT", "30s"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "aquafarm"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			Recipient:     os.Getenv("WHATSAPP_ALERT_RECIPIENT"),
		},
		Forecaster: ForecasterConfig{
			BaseURL: os.Getenv("FORECASTER_BASE_URL"),
			Timeout: dur("FORECASTER_TIMEOUT", "15s"),
		},
		Reporting: ReportingConfig{
			ScanSchedule:     getenvWithDefault("ALERT_SCAN_CRON_SCHEDULE", "0 */6 * * *"),
			SnapshotSchedule: getenvWithDefault("SNAPSHOT_CRON_SCHEDULE", "0 20 * * 0"),
			SnapshotPeriod:   getenvWithDefault("SNAPSHOT_PERIOD", "week"),
			Timezone:         getenvWithDefault("TIMEZONE", "Africa/Conakry"),
		},
		Alerts: AlertsConfig{
			DOMin:          num("ALERT_DO_MIN", "4"),
			AmmoniaMax:     num("ALERT_AMMONIA_MAX", "0.05"),
			TemperatureMax: num("ALERT_TEMPERATURE_MAX", "32"),
			PHMin:          num("ALERT_PH_MIN", "6.5"),
			PHMax:          num("ALERT_PH_MAX", "8.5"),
			Sigma:          num("ALERT_SIGMA", "2"),
			LookbackDays:   lookback,
			Organizations:  splitList(os.Getenv("ALERT_ORGANIZATIONS")),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
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
	if c.Postgres.URL == "" {
		return errors.New("DATABASE_URL must be provided")
	}
	if c.MongoDB.URI == "" || c.MongoDB.DBName == "" {
		return errors.New("MONGODB_URI and MONGODB_DB_NAME must be provided")
	}

	if c.Sheets.Enabled() && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when GOOGLE_SHEET_DATABASE_ID is set")
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	switch {
	case c.Reporting.ScanSchedule == "":
		return errors.New("ALERT_SCAN_CRON_SCHEDULE must be provided")
	case c.Reporting.SnapshotSchedule == "":
		return errors.New("SNAPSHOT_CRON_SCHEDULE must be provided")
	case c.Reporting.Timezone == "":
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := period.ParseSpec(c.Reporting.SnapshotPeriod, "", ""); err != nil {
		return fmt.Errorf("SNAPSHOT_PERIOD: %w", err)
	}

	if c.Alerts.Sigma <= 0 {
		return errors.New("ALERT_SIGMA must be positive")
	}
	if c.Alerts.LookbackDays < 4 {
		return errors.New("ALERT_LOOKBACK_DAYS must be at least 4")
	}
	if c.Alerts.PHMin >= c.Alerts.PHMax {
		return errors.New("ALERT_PH_MIN must be lower than ALERT_PH_MAX")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not supported", c.Log.Level)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
