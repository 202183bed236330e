package models

// ModuleHealth is one backend module's slice of the unified
// infrastructure-health report. The prediction fields are optional and
// differ per module (leak detection, image detection, water quality).
type ModuleHealth struct {
	Status      string  `json:"status"` // HEALTHY, WATCH, DEGRADED, ALERT, CRITICAL, MONITORING
	HealthScore float64 `json:"health_score"`
	Details     string  `json:"details,omitempty"`

	SimulationMode string                 `json:"simulation_mode,omitempty"`
	LastEvent      string                 `json:"last_event,omitempty"`
	LastPrediction map[string]interface{} `json:"last_prediction,omitempty"`
	PipelineID     string                 `json:"pipeline_id,omitempty"`
	AIPrediction   WaterCondition         `json:"ai_prediction,omitempty"`
	WQIScore       float64                `json:"wqi_score,omitempty"`
	RiskLevel      RiskLevel              `json:"risk_level,omitempty"`
	SensorValues   *SensorValues          `json:"sensor_values,omitempty"`
}

// InfraHealthSnapshot is the unified infrastructure-health report.
// Wholesale-replaced on every successful 5s poll; the previous snapshot
// is retained when a poll fails.
type InfraHealthSnapshot struct {
	Timestamp          FlexibleTime            `json:"timestamp"`
	OverallStatus      string                  `json:"overall_status"`
	OverallHealthScore float64                 `json:"overall_health_score"`
	DataSource         string                  `json:"data_source,omitempty"`
	Modules            map[string]ModuleHealth `json:"modules"`
}
