package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://farm@localhost/farm")
	t.Setenv("ALERT_ORGANIZATIONS", " org-a, ,org-b ")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 4.0, cfg.Alerts.DOMin)
	assert.Equal(t, 0.05, cfg.Alerts.AmmoniaMax)
	assert.Equal(t, 2.0, cfg.Alerts.Sigma)
	assert.Equal(t, 30, cfg.Alerts.LookbackDays)
	assert.Equal(t, []string{"org-a", "org-b"}, cfg.Alerts.Organizations)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL=postgres://file\nALERT_SIGMA=3\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("ALERT_SIGMA")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file", cfg.Postgres.URL)
	assert.Equal(t, 3.0, cfg.Alerts.Sigma)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("ALERT_SIGMA", "two")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "ALERT_SIGMA")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Postgres:  PostgresConfig{URL: "postgres://x"},
			MongoDB:   MongoDBConfig{URI: "mongodb://x", DBName: "aquafarm"},
			Reporting: ReportingConfig{ScanSchedule: "@hourly", SnapshotSchedule: "@weekly", SnapshotPeriod: "week", Timezone: "UTC"},
			Alerts:    AlertsConfig{Sigma: 2, LookbackDays: 30, PHMin: 6.5, PHMax: 8.5},
			Log:       LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.Postgres.URL = "" }, errMsg: "DATABASE_URL"},
		{name: "sheet without credentials", mutate: func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, errMsg: "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{name: "unknown snapshot period", mutate: func(c *Config) { c.Reporting.SnapshotPeriod = "fortnight" }, errMsg: "SNAPSHOT_PERIOD"},
		{name: "custom snapshot period", mutate: func(c *Config) { c.Reporting.SnapshotPeriod = "custom" }, errMsg: "SNAPSHOT_PERIOD"},
		{name: "non-positive sigma", mutate: func(c *Config) { c.Alerts.Sigma = 0 }, errMsg: "ALERT_SIGMA"},
		{name: "short lookback", mutate: func(c *Config) { c.Alerts.LookbackDays = 3 }, errMsg: "ALERT_LOOKBACK_DAYS"},
		{name: "inverted ph band", mutate: func(c *Config) { c.Alerts.PHMin = 9 }, errMsg: "ALERT_PH_MIN"},
		{name: "unknown level", mutate: func(c *Config) { c.Log.Level = "trace" }, errMsg: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	assert.Error(t, cfg.Validate())
}
