package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Environment variables
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/aquawatch/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AQUAWATCH")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets the documented policy defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8090)
	v.SetDefault("log_level", "info")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 30000)

	v.SetDefault("streams.alerts_path", "/api/v1/alerts/ws/alerts")
	v.SetDefault("streams.water_quality_path", "/api/v1/water-quality/ws/live")
	v.SetDefault("streams.reconnect_delay_ms", 3000)

	v.SetDefault("poll.telemetry_interval_ms", 1000)
	v.SetDefault("poll.infra_interval_ms", 5000)
	v.SetDefault("poll.quality_history_limit", 20)
	v.SetDefault("poll.bootstrap_timeout_ms", 15000)

	v.SetDefault("buffers.telemetry", 30)
	v.SetDefault("buffers.quality_trend", 30)
	v.SetDefault("buffers.alerts", 10)
	v.SetDefault("buffers.quality_alerts", 8)
	v.SetDefault("buffers.chat_suggestions", 3)

	v.SetDefault("quality.safe_wqi_threshold", 70)

	v.SetDefault("export.dir", os.TempDir())
}

// overrideWithEnvVars explicitly handles environment variable overrides
func overrideWithEnvVars(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		v.Set("port", port)
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}
	if base := os.Getenv("LEAKWATCH_BASE_URL"); base != "" {
		v.Set("backend.base_url", base)
	}
	if token := os.Getenv("LEAKWATCH_TOKEN"); token != "" {
		v.Set("backend.token", token)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	u, err := url.Parse(config.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("backend base URL must be http or https: %q", config.Backend.BaseURL)
	}

	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	if config.Streams.ReconnectDelayMS < 1 {
		return fmt.Errorf("stream reconnect delay must be positive")
	}
	if config.Poll.TelemetryIntervalMS < 1 || config.Poll.InfraIntervalMS < 1 {
		return fmt.Errorf("poll intervals must be positive")
	}

	for name, size := range map[string]int{
		"telemetry":        config.Buffers.Telemetry,
		"quality_trend":    config.Buffers.QualityTrend,
		"alerts":           config.Buffers.Alerts,
		"quality_alerts":   config.Buffers.QualityAlerts,
		"chat_suggestions": config.Buffers.ChatSuggestions,
	} {
		if size < 1 {
			return fmt.Errorf("buffer capacity %s must be at least 1", name)
		}
	}

	if config.Quality.SafeWQIThreshold < 0 || config.Quality.SafeWQIThreshold > 100 {
		return fmt.Errorf("safe WQI threshold must be within 0-100")
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
