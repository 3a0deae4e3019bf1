package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data/nhse_cache", cfg.CacheDir)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 24*time.Hour, cfg.RefreshInterval)
	assert.Zero(t, cfg.DownloadRetries)
	assert.Equal(t, "data", cfg.OpsDataDir)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.PeerSet())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("PEERS", "portsmouth, southampton")
	t.Setenv("REFRESH_INTERVAL", "0s")
	t.Setenv("STORE_MAX_HISTORY", "12")
	t.Setenv("DOWNLOAD_RETRIES", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, benchmark.PeerSet{"portsmouth", "southampton"}, cfg.PeerSet())
	assert.Zero(t, cfg.RefreshInterval)
	assert.Equal(t, 12, cfg.StoreMaxHistory)
	assert.Equal(t, 2, cfg.DownloadRetries)
}

func TestValidate(t *testing.T) {
	cfg := &AppConfig{
		CacheDir:        " ",
		HTTPTimeout:     time.Second,
		RefreshInterval: -time.Minute,
		DownloadRetries: -1,
		LogLevel:        "loud",
		LogFormat:       "xml",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_DIR")
	assert.Contains(t, err.Error(), "REFRESH_INTERVAL")
	assert.Contains(t, err.Error(), "DOWNLOAD_RETRIES")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &AppConfig{LogLevel: "warn", LogFormat: "json"}

	logger := cfg.NewLogger(&buf)
	logger.Info().Msg("dropped")
	logger.Warn().Str("dataset", "kh03").Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"dataset":"kh03"`)
}
