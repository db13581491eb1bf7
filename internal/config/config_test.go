package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// No config.yaml in a fresh temp dir
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.App.Debug)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "ailead.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.Geocode.URL)
	assert.Equal(t, "AILeadQualifier", cfg.Geocode.UserAgent)
	assert.Equal(t, 5, cfg.Geocode.TimeoutSecs)
	assert.InDelta(t, 1.0, cfg.Geocode.RateLimit, 0.001)
	assert.True(t, cfg.Scrape.Enabled)
	assert.True(t, cfg.Scrape.RedfinAPIEnabled)
	assert.Equal(t, "https://www.redfin.com/stingray", cfg.Scrape.RedfinAPIURL)
	assert.Equal(t, "https://www.redfin.com", cfg.Scrape.RedfinURL)
	assert.Equal(t, "https://www.zillow.com", cfg.Scrape.ZillowURL)
	assert.Equal(t, 5, cfg.Scrape.APIDelaySecs)
	assert.Equal(t, 3, cfg.Scrape.RenderWaitSecs)
	assert.Equal(t, 30, cfg.Scrape.NavTimeoutSecs)
	assert.True(t, cfg.Scrape.Headless)
	assert.Empty(t, cfg.Scrape.BrowserBin)
	assert.Equal(t, 5, cfg.Resilience.FailureThreshold)
	assert.Equal(t, 300, cfg.Resilience.ResetTimeoutSecs)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Server.MaxSearches)
	assert.True(t, cfg.Server.FeedbackEnabled)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate("serve"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leads
scrape:
  enabled: false
server:
  port: 9090
  max_searches: 4
  feedback_enabled: false
log:
  level: warn
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
	assert.False(t, cfg.Scrape.Enabled)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Server.MaxSearches)
	assert.False(t, cfg.Server.FeedbackEnabled)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "AILeadQualifier", cfg.Geocode.UserAgent)
	assert.Equal(t, 5, cfg.Scrape.APIDelaySecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
server:
  max_searches: 3
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("QUALIFIER_SERVER_MAX_SEARCHES", "7")
	t.Setenv("QUALIFIER_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Server.MaxSearches)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadDebugForcesConsole(t *testing.T) {
	chdirTemp(t)
	t.Setenv("QUALIFIER_APP_DEBUG", "true")
	t.Setenv("QUALIFIER_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := Load()
	assert.ErrorContains(t, err, "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config that passes validation in every mode.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = DriverSQLite
	cfg.Store.DatabaseURL = "ailead.db"
	cfg.Server.Port = 5000
	cfg.Server.MaxSearches = 1
	cfg.Geocode.RateLimit = 1
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	for _, mode := range []string{"serve", "batch", "config"} {
		assert.NoError(t, validDefaults().Validate(mode), mode)
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `got "mysql"`)
}

func TestValidate_SearchLimit(t *testing.T) {
	cfg := validDefaults()

	cfg.Server.MaxSearches = 0
	err := cfg.Validate("batch")
	assert.ErrorContains(t, err, "server.max_searches must be > 0")

	cfg.Server.MaxSearches = -2
	assert.Error(t, cfg.Validate("serve"))

	cfg.Server.MaxSearches = 2
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_PortOnlyForServe(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.ErrorContains(t, err, "server.port must be > 0")
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "server.max_searches must be > 0")
}

func TestValidate_NegativeValues(t *testing.T) {
	cfg := validDefaults()
	cfg.Geocode.RateLimit = -1
	assert.ErrorContains(t, cfg.Validate("batch"), "geocode.rate_limit")

	cfg = validDefaults()
	cfg.Resilience.ResetTimeoutSecs = -5
	assert.ErrorContains(t, cfg.Validate("batch"), "resilience values must be >= 0")
}
