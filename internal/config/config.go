package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Streams StreamsConfig `mapstructure:"streams" yaml:"streams"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Buffers BuffersConfig `mapstructure:"buffers" yaml:"buffers"`
	Quality QualityConfig `mapstructure:"quality" yaml:"quality"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
}

// BackendConfig points at the leakwatch backend that produces telemetry,
// alerts and water-quality predictions.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"` // milliseconds
	Token   string `mapstructure:"token" yaml:"token"`
}

// StreamsConfig controls the two push channels and their reconnect policy.
type StreamsConfig struct {
	AlertsPath       string `mapstructure:"alerts_path" yaml:"alerts_path"`
	WaterQualityPath string `mapstructure:"water_quality_path" yaml:"water_quality_path"`
	ReconnectDelayMS int    `mapstructure:"reconnect_delay_ms" yaml:"reconnect_delay_ms"`
}

// PollConfig controls the two pull loops.
type PollConfig struct {
	TelemetryIntervalMS int `mapstructure:"telemetry_interval_ms" yaml:"telemetry_interval_ms"`
	InfraIntervalMS     int `mapstructure:"infra_interval_ms" yaml:"infra_interval_ms"`
	QualityHistoryLimit int `mapstructure:"quality_history_limit" yaml:"quality_history_limit"`
	BootstrapTimeoutMS  int `mapstructure:"bootstrap_timeout_ms" yaml:"bootstrap_timeout_ms"`
}

// BuffersConfig fixes the capacity of every rolling series. These are
// policy constants, not derived values.
type BuffersConfig struct {
	Telemetry       int `mapstructure:"telemetry" yaml:"telemetry"`
	QualityTrend    int `mapstructure:"quality_trend" yaml:"quality_trend"`
	Alerts          int `mapstructure:"alerts" yaml:"alerts"`
	QualityAlerts   int `mapstructure:"quality_alerts" yaml:"quality_alerts"`
	ChatSuggestions int `mapstructure:"chat_suggestions" yaml:"chat_suggestions"`
}

// QualityConfig carries the classification thresholds.
type QualityConfig struct {
	SafeWQIThreshold float64 `mapstructure:"safe_wqi_threshold" yaml:"safe_wqi_threshold"`
}

// ExportConfig controls where export downloads are written.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}
