package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/i474232898/hospital-flow/internal/benchmark"
	"github.com/i474232898/hospital-flow/internal/benchmark/sources"
	"github.com/i474232898/hospital-flow/internal/common"
)

type AppConfig struct {
	Port string `mapstructure:"PORT"`

	// CacheDir holds downloaded publication files, one per dataset period.
	CacheDir    string        `mapstructure:"CACHE_DIR"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`
	UserAgent   string        `mapstructure:"USER_AGENT"`

	// DownloadRetries is the number of extra attempts after a 5xx or network
	// failure. Zero surfaces the first failure.
	DownloadRetries int `mapstructure:"DOWNLOAD_RETRIES"`

	// Peers is the comma-separated default peer set.
	Peers string `mapstructure:"PEERS"`

	// RefreshInterval controls how often observations are refreshed.
	// Zero disables the scheduler.
	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL"`

	// In-memory store retention.
	StoreMaxHistory int           `mapstructure:"STORE_MAX_HISTORY"` // max observations per series (0 = unlimited)
	StoreMaxAge     time.Duration `mapstructure:"STORE_MAX_AGE"`     // max age of observations (0 = unlimited)

	// DatabaseURL switches history to Postgres when set.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`

	OpsDataDir string `mapstructure:"OPS_DATA_DIR"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var keys = []string{
	"PORT", "CACHE_DIR", "HTTP_TIMEOUT", "USER_AGENT", "DOWNLOAD_RETRIES", "PEERS", "REFRESH_INTERVAL",
	"STORE_MAX_HISTORY", "STORE_MAX_AGE", "DATABASE_URL", "DB_MAX_CONNS",
	"OPS_DATA_DIR", "LOG_LEVEL", "LOG_FORMAT",
}

// Load reads configuration from .env and the environment with defaults.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("CACHE_DIR", "data/nhse_cache")
	v.SetDefault("HTTP_TIMEOUT", "60s")
	v.SetDefault("USER_AGENT", sources.DefaultUserAgent)
	v.SetDefault("DOWNLOAD_RETRIES", 0)
	v.SetDefault("PEERS", "")
	v.SetDefault("REFRESH_INTERVAL", "24h")
	v.SetDefault("STORE_MAX_HISTORY", 36) // three years of monthly periods
	v.SetDefault("STORE_MAX_AGE", "0s")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("OPS_DATA_DIR", "data")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.CacheDir) == "" {
		errs = append(errs, errors.New("CACHE_DIR must not be empty"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout))
	}
	if c.DownloadRetries < 0 {
		errs = append(errs, fmt.Errorf("DOWNLOAD_RETRIES must not be negative, got %d", c.DownloadRetries))
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL must not be negative, got %s", c.RefreshInterval))
	}
	if c.StoreMaxAge < 0 {
		errs = append(errs, fmt.Errorf("STORE_MAX_AGE must not be negative, got %s", c.StoreMaxAge))
	}
	if c.StoreMaxHistory < 0 {
		errs = append(errs, fmt.Errorf("STORE_MAX_HISTORY must not be negative, got %d", c.StoreMaxHistory))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// PeerSet returns the configured default peers.
func (c *AppConfig) PeerSet() benchmark.PeerSet {
	return benchmark.PeerSet(common.SplitList(c.Peers))
}

// NewLogger builds the process logger. Output goes to stdout unless w is
// set.
func (c *AppConfig) NewLogger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if strings.EqualFold(c.LogFormat, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
