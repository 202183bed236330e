package models

// WaterCondition is the AI prediction label attached to a water-quality
// sample by the backend model.
type WaterCondition string

const (
	ConditionSafe         WaterCondition = "SAFE"
	ConditionModerate     WaterCondition = "MODERATE"
	ConditionContaminated WaterCondition = "CONTAMINATED"
	ConditionDangerous    WaterCondition = "DANGEROUS"
)

// RiskLevel is the backend's coarse risk bucket for a sample.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// SensorValues are the raw probe readings behind one prediction.
type SensorValues struct {
	PH              float64 `json:"ph"`
	Turbidity       float64 `json:"turbidity"`
	TDS             float64 `json:"tds"`
	Temperature     float64 `json:"temperature"`
	DissolvedOxygen float64 `json:"dissolved_oxygen"`
}

// WaterQualitySample is one scored water-quality snapshot. It arrives
// either from the bootstrap history fetch (batch, newest-first) or from
// the live push channel (one at a time). The live push variant carries
// the extra alert fields.
type WaterQualitySample struct {
	Timestamp    FlexibleTime   `json:"timestamp"`
	PipelineID   string         `json:"pipeline_id"`
	SensorValues SensorValues   `json:"sensor_values"`
	AIPrediction WaterCondition `json:"ai_prediction"`
	WQIScore     float64        `json:"wqi_score"`
	RiskLevel    RiskLevel      `json:"risk_level"`

	// Present on live push messages only.
	Event          string   `json:"event,omitempty"`
	AlertTriggered bool     `json:"alert_triggered,omitempty"`
	AlertReasons   []string `json:"alert_reasons,omitempty"`
}

// WaterQualityStatus is the backend's mode report used by the two-step
// water-quality bootstrap.
type WaterQualityStatus struct {
	IsActive    bool   `json:"is_active"`
	CurrentMode string `json:"current_mode"`
}
