// Package quality holds the single source of truth for deriving safety
// and risk labels from a scored water-quality sample. Every path that
// needs the contamination decision (live push handling, alert
// synthesis, snapshot re-derivation) calls Classify so the rule cannot
// drift.
package quality

import "github.com/aquawatch/aquawatch-core/internal/models"

// DefaultSafeWQIThreshold is the WQI score below which water is treated
// as contaminated regardless of the model's prediction label.
const DefaultSafeWQIThreshold = 70.0

const phScaleMax = 14.0

// Classification is the derived view of one sample.
type Classification struct {
	IsSafeToDrink  bool             `json:"is_safe_to_drink"`
	IsContaminated bool             `json:"is_contaminated"`
	RiskLevel      models.RiskLevel `json:"risk_level"`
	WQIPercent     float64          `json:"wqi_percent"`
	PHPercent      float64          `json:"ph_percent"`
}

// Classifier derives safety labels using a configurable WQI threshold.
// The zero value is not usable; construct with New.
type Classifier struct {
	safeWQI float64
}

func New(safeWQIThreshold float64) *Classifier {
	if safeWQIThreshold <= 0 {
		safeWQIThreshold = DefaultSafeWQIThreshold
	}
	return &Classifier{safeWQI: safeWQIThreshold}
}

// Classify is pure and total: any sample yields a classification.
//
// isSafeToDrink iff the model predicted SAFE and the WQI score is at or
// above the threshold. isContaminated iff the prediction is
// CONTAMINATED or DANGEROUS, or the risk level is HIGH or CRITICAL, or
// the WQI score is below the threshold; the threshold rule dominates
// the prediction label.
func (c *Classifier) Classify(sample models.WaterQualitySample) Classification {
	contaminated := sample.AIPrediction == models.ConditionContaminated ||
		sample.AIPrediction == models.ConditionDangerous ||
		sample.RiskLevel == models.RiskHigh ||
		sample.RiskLevel == models.RiskCritical ||
		sample.WQIScore < c.safeWQI

	return Classification{
		IsSafeToDrink:  sample.AIPrediction == models.ConditionSafe && sample.WQIScore >= c.safeWQI,
		IsContaminated: contaminated,
		RiskLevel:      sample.RiskLevel,
		WQIPercent:     clamp(sample.WQIScore, 0, 100),
		PHPercent:      clamp(sample.SensorValues.PH/phScaleMax*100, 0, 100),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
