package models

import "encoding/json"

// The bootstrap aggregates are slow-changing report documents the engine
// stores verbatim for the consumer; it never interprets their interior.
// json.RawMessage keeps them opaque while staying cheap to re-publish.

type AnalyticsSummary = json.RawMessage

type AnalyticsTrends = json.RawMessage

type GeoTopology = json.RawMessage

type RiskAssessment = json.RawMessage

// LeakImageRecord is one entry of the image-detection history.
type LeakImageRecord struct {
	ID              int64   `json:"id"`
	Filename        string  `json:"filename"`
	LeakType        string  `json:"leak_type"`
	SeverityLevel   string  `json:"severity_level"`
	ConfidenceScore float64 `json:"confidence_score"`
	Recommendation  string  `json:"recommended_solution,omitempty"`
	Timestamp       string  `json:"timestamp"`
}
