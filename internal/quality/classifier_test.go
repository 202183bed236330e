package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aquawatch/aquawatch-core/internal/models"
)

func sample(pred models.WaterCondition, risk models.RiskLevel, wqi, ph float64) models.WaterQualitySample {
	return models.WaterQualitySample{
		AIPrediction: pred,
		RiskLevel:    risk,
		WQIScore:     wqi,
		SensorValues: models.SensorValues{PH: ph},
	}
}

func TestClassify_ThresholdDominatesPrediction(t *testing.T) {
	c := New(DefaultSafeWQIThreshold)

	// wqi 65 with a SAFE prediction is still contaminated
	got := c.Classify(sample(models.ConditionSafe, models.RiskLow, 65, 7.0))
	assert.True(t, got.IsContaminated)
	assert.False(t, got.IsSafeToDrink)
}

func TestClassify_SafeToDrink(t *testing.T) {
	c := New(DefaultSafeWQIThreshold)

	for _, tc := range []struct {
		name string
		in   models.WaterQualitySample
		safe bool
	}{
		{"safe prediction at threshold", sample(models.ConditionSafe, models.RiskLow, 70, 7.2), true},
		{"safe prediction above threshold", sample(models.ConditionSafe, models.RiskLow, 92, 7.2), true},
		{"moderate prediction high wqi", sample(models.ConditionModerate, models.RiskMedium, 85, 7.2), false},
		{"safe prediction below threshold", sample(models.ConditionSafe, models.RiskLow, 69.9, 7.2), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.safe, c.Classify(tc.in).IsSafeToDrink)
		})
	}
}

func TestClassify_ContaminationRules(t *testing.T) {
	c := New(DefaultSafeWQIThreshold)

	for _, tc := range []struct {
		name         string
		in           models.WaterQualitySample
		contaminated bool
	}{
		{"contaminated prediction", sample(models.ConditionContaminated, models.RiskLow, 95, 7), true},
		{"dangerous prediction", sample(models.ConditionDangerous, models.RiskLow, 95, 7), true},
		{"high risk", sample(models.ConditionSafe, models.RiskHigh, 95, 7), true},
		{"critical risk", sample(models.ConditionSafe, models.RiskCritical, 95, 7), true},
		{"low wqi", sample(models.ConditionSafe, models.RiskLow, 40, 7), true},
		{"clean", sample(models.ConditionSafe, models.RiskLow, 88, 7), false},
		{"moderate but healthy wqi", sample(models.ConditionModerate, models.RiskMedium, 75, 7), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.contaminated, c.Classify(tc.in).IsContaminated)
		})
	}
}

func TestClassify_Percentages(t *testing.T) {
	c := New(DefaultSafeWQIThreshold)

	got := c.Classify(sample(models.ConditionSafe, models.RiskLow, 82.5, 7.0))
	assert.InDelta(t, 82.5, got.WQIPercent, 1e-9)
	assert.InDelta(t, 50.0, got.PHPercent, 1e-9)

	// clamped at both ends
	got = c.Classify(sample(models.ConditionSafe, models.RiskLow, 140, 16))
	assert.Equal(t, 100.0, got.WQIPercent)
	assert.Equal(t, 100.0, got.PHPercent)

	got = c.Classify(sample(models.ConditionDangerous, models.RiskCritical, -5, -1))
	assert.Equal(t, 0.0, got.WQIPercent)
	assert.Equal(t, 0.0, got.PHPercent)
}

func TestNew_FallsBackToDefaultThreshold(t *testing.T) {
	c := New(0)
	got := c.Classify(sample(models.ConditionSafe, models.RiskLow, 69, 7))
	assert.True(t, got.IsContaminated)
}
