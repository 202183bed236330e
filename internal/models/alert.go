package models

// EventWaterQualityAlert tags a push payload as a water-quality alert.
// Payloads carrying any other event value are incident alerts.
const EventWaterQualityAlert = "WATER_QUALITY_ALERT"

// Alert is a leak/incident alert sourced from the alert push channel.
// The severity label set is defined by the backend (Minor, Moderate,
// Critical, plus Resolved pass-throughs from ticket resolution).
type Alert struct {
	ID            int64        `json:"id"`
	Event         string       `json:"event"`
	Severity      string       `json:"severity"`
	SeverityScore float64      `json:"severity_score"`
	Confidence    float64      `json:"confidence,omitempty"`
	Location      string       `json:"location"`
	Analysis      string       `json:"analysis"`
	Timestamp     FlexibleTime `json:"timestamp"`
}

// QualityAlert is a water-quality alert. Two origins: forwarded from the
// shared alert push channel when tagged EventWaterQualityAlert, or
// synthesized locally when a classified live sample crosses the
// contamination threshold.
type QualityAlert struct {
	ID            string         `json:"id"`
	Event         string         `json:"event"`
	Severity      string         `json:"severity"` // Warning | Critical
	SeverityScore float64        `json:"severity_score"`
	Location      string         `json:"location"`
	Analysis      string         `json:"analysis"`
	Timestamp     FlexibleTime   `json:"timestamp"`
	AIPrediction  WaterCondition `json:"ai_prediction,omitempty"`
	WQIScore      float64        `json:"wqi_score"`
	RiskLevel     RiskLevel      `json:"risk_level,omitempty"`
	Synthesized   bool           `json:"synthesized,omitempty"`
}
