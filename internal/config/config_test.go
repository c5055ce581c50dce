package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: twoziq-test
server:
  port: 9090
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "twoziq-test", cfg.App.Name)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 252, cfg.Analytics.AnalysisWindow)
	assert.Equal(t, 30, cfg.Analytics.HistogramBins)
	assert.Equal(t, 120, cfg.Analytics.ForecastDays)
	assert.Equal(t, DefaultBasket, cfg.Market.Basket)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "analytics:\n  sample_paths: 40\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "analytics:\n  sample_paths: 500\n  simulation_runs: 100\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TWOZIQ_PORT", "7070")
	t.Setenv("TWOZIQ_REDIS_ADDR", "redis:6379")

	cfg, err := Load(writeConfig(t, "app:\n  name: twoziq\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
