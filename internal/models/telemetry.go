package models

// SimulationMode is the operating mode reported by the leak simulation
// backend alongside each telemetry sample.
type SimulationMode string

const (
	ModeNormal       SimulationMode = "normal"
	ModeSmallLeak    SimulationMode = "small_leak"
	ModeMajorBurst   SimulationMode = "major_burst"
	ModeIntermittent SimulationMode = "intermittent"
	ModeValveFault   SimulationMode = "valve_fault"
)

// TelemetrySample is one pipeline sensor reading produced by the 1s poll.
// Immutable once created; retained only inside the bounded telemetry buffer.
type TelemetrySample struct {
	Timestamp FlexibleTime   `json:"timestamp"`
	Pressure  float64        `json:"pressure"`  // bar
	FlowRate  float64        `json:"flow_rate"` // L/min
	Mode      SimulationMode `json:"mode"`
}

// TelemetryStats are the display-ready values derived from the most
// recent telemetry sample.
type TelemetryStats struct {
	Pressure float64        `json:"pressure"`
	FlowRate float64        `json:"flow_rate"`
	Mode     SimulationMode `json:"mode"`
}
