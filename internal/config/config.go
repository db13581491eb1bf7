package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	App        AppConfig        `yaml:"app" mapstructure:"app"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AppConfig holds process-wide toggles.
type AppConfig struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GeocodeConfig configures the Nominatim geocoder.
type GeocodeConfig struct {
	URL         string  `yaml:"url" mapstructure:"url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ScrapeConfig configures the Redfin and Zillow listing sources.
type ScrapeConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	RedfinAPIEnabled bool   `yaml:"redfin_api_enabled" mapstructure:"redfin_api_enabled"`
	RedfinAPIURL     string `yaml:"redfin_api_url" mapstructure:"redfin_api_url"`
	RedfinURL        string `yaml:"redfin_url" mapstructure:"redfin_url"`
	ZillowURL        string `yaml:"zillow_url" mapstructure:"zillow_url"`
	APIDelaySecs     int    `yaml:"api_delay_secs" mapstructure:"api_delay_secs"`
	RenderWaitSecs   int    `yaml:"render_wait_secs" mapstructure:"render_wait_secs"`
	NavTimeoutSecs   int    `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	BrowserBin       string `yaml:"browser_bin" mapstructure:"browser_bin"`
	Headless         bool   `yaml:"headless" mapstructure:"headless"`
}

// ResilienceConfig configures the per-source circuit breakers.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the web server and the search gate.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	MaxSearches     int      `yaml:"max_searches" mapstructure:"max_searches"`
	FeedbackEnabled bool     `yaml:"feedback_enabled" mapstructure:"feedback_enabled"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("QUALIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("app.debug", false)
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database_url", "ailead.db")
	v.SetDefault("geocode.url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "AILeadQualifier")
	v.SetDefault("geocode.timeout_secs", 5)
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("scrape.enabled", true)
	v.SetDefault("scrape.redfin_api_enabled", true)
	v.SetDefault("scrape.redfin_api_url", "https://www.redfin.com/stingray")
	v.SetDefault("scrape.redfin_url", "https://www.redfin.com")
	v.SetDefault("scrape.zillow_url", "https://www.zillow.com")
	v.SetDefault("scrape.api_delay_secs", 5)
	v.SetDefault("scrape.render_wait_secs", 3)
	v.SetDefault("scrape.nav_timeout_secs", 30)
	v.SetDefault("scrape.browser_bin", "")
	v.SetDefault("scrape.headless", true)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 300)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.max_searches", 1)
	v.SetDefault("server.feedback_enabled", true)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.App.Debug {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "console"
	}

	return &cfg, nil
}

// Validate checks the settings the given mode ("serve", "batch" or "config")
// needs and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "batch", "config":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if !slices.Contains([]string{DriverSQLite, DriverPostgres}, c.Store.Driver) {
		errs = append(errs, fmt.Sprintf("store.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Server.MaxSearches <= 0 {
		errs = append(errs, "server.max_searches must be > 0")
	}
	if c.Geocode.RateLimit < 0 {
		errs = append(errs, "geocode.rate_limit must be >= 0")
	}
	if c.Resilience.FailureThreshold < 0 || c.Resilience.ResetTimeoutSecs < 0 {
		errs = append(errs, "resilience values must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
