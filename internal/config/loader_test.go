package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromDir(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadFromDir(t, "")
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 3000, cfg.Streams.ReconnectDelayMS)
	assert.Equal(t, 1000, cfg.Poll.TelemetryIntervalMS)
	assert.Equal(t, 5000, cfg.Poll.InfraIntervalMS)
	assert.Equal(t, 20, cfg.Poll.QualityHistoryLimit)
	assert.Equal(t, 30, cfg.Buffers.Telemetry)
	assert.Equal(t, 30, cfg.Buffers.QualityTrend)
	assert.Equal(t, 10, cfg.Buffers.Alerts)
	assert.Equal(t, 8, cfg.Buffers.QualityAlerts)
	assert.Equal(t, 3, cfg.Buffers.ChatSuggestions)
	assert.Equal(t, 70.0, cfg.Quality.SafeWQIThreshold)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := loadFromDir(t, `
port: 9999
backend:
  base_url: https://water.example.com
streams:
  reconnect_delay_ms: 500
`)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "https://water.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 500, cfg.Streams.ReconnectDelayMS)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("LEAKWATCH_BASE_URL", "http://env.example.com")
	t.Setenv("LEAKWATCH_TOKEN", "tok-123")

	cfg, err := loadFromDir(t, `
backend:
  base_url: http://file.example.com
`)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "tok-123", cfg.Backend.Token)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:     8090,
			LogLevel: "info",
			Backend:  BackendConfig{BaseURL: "http://localhost:8000"},
			Streams:  StreamsConfig{ReconnectDelayMS: 3000},
			Poll:     PollConfig{TelemetryIntervalMS: 1000, InfraIntervalMS: 5000},
			Buffers:  BuffersConfig{Telemetry: 30, QualityTrend: 30, Alerts: 10, QualityAlerts: 8, ChatSuggestions: 3},
			Quality:  QualityConfig{SafeWQIThreshold: 70},
		}
	}

	require.NoError(t, validateConfig(valid()))

	c := valid()
	c.Backend.BaseURL = "ftp://nope"
	assert.Error(t, validateConfig(c))

	c = valid()
	c.Port = 0
	assert.Error(t, validateConfig(c))

	c = valid()
	c.LogLevel = "spicy"
	assert.Error(t, validateConfig(c))

	c = valid()
	c.Streams.ReconnectDelayMS = 0
	assert.Error(t, validateConfig(c))

	c = valid()
	c.Buffers.Alerts = 0
	assert.Error(t, validateConfig(c))

	c = valid()
	c.Quality.SafeWQIThreshold = 120
	assert.Error(t, validateConfig(c))
}
