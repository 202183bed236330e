// Package alerts merges the two alert origins into the capped buffers:
// payloads pushed over the shared alert channel, routed by their event
// discriminator, and quality alerts synthesized locally from classified
// live samples.
package alerts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aquawatch/aquawatch-core/internal/metrics"
	"github.com/aquawatch/aquawatch-core/internal/models"
	"github.com/aquawatch/aquawatch-core/internal/quality"
	"github.com/aquawatch/aquawatch-core/internal/state"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

const (
	analysisSeparator = " | "
	defaultAnalysis   = "Water quality anomaly detected."
	severityWarning   = "Warning"
	severityCritical  = "Critical"
)

// Merger owns alert routing, synthesis and deduplication. All writes go
// through the store so they are serialized with every other mutation.
type Merger struct {
	store      *state.Store
	classifier *quality.Classifier
	logger     logger.Logger

	// onIncident runs after an incident alert lands; the engine uses it
	// to fan out an analytics re-fetch without blocking the buffer
	// update.
	onIncident func()
}

func NewMerger(store *state.Store, classifier *quality.Classifier, log logger.Logger, onIncident func()) *Merger {
	return &Merger{
		store:      store,
		classifier: classifier,
		logger:     log,
		onIncident: onIncident,
	}
}

// HandleAlertPayload routes one raw payload from the shared alert push
// channel. Payloads tagged as water-quality events land in the quality
// buffer; everything else is an incident alert. A decode failure marks
// the payload malformed.
func (m *Merger) HandleAlertPayload(payload []byte) error {
	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return fmt.Errorf("undecodable alert payload: %w", err)
	}

	if probe.Event == models.EventWaterQualityAlert {
		var qa models.QualityAlert
		if err := json.Unmarshal(payload, &qa); err != nil {
			return fmt.Errorf("undecodable quality alert: %w", err)
		}
		if qa.ID == "" {
			qa.ID = uuid.NewString()
		}
		m.store.Apply("alerts_stream", func(d *state.Data) {
			d.QualityAlerts.PushFront(qa)
		})
		metrics.AlertsMergedTotal.WithLabelValues("quality", "push").Inc()
		m.logger.Info("quality alert received", "severity", qa.Severity, "location", qa.Location)
		return nil
	}

	var alert models.Alert
	if err := json.Unmarshal(payload, &alert); err != nil {
		return fmt.Errorf("undecodable incident alert: %w", err)
	}
	m.store.Apply("alerts_stream", func(d *state.Data) {
		d.Alerts.PushFront(alert)
	})
	metrics.AlertsMergedTotal.WithLabelValues("incident", "push").Inc()
	m.logger.Info("incident alert received",
		"event", alert.Event, "severity", alert.Severity, "location", alert.Location)

	if m.onIncident != nil {
		go m.onIncident()
	}
	return nil
}

// MergeLiveSample applies one live water-quality sample: trend append,
// latest-value and classification update in a single mutation, plus, if
// the sample classifies as contaminated, a synthesized quality alert.
// A synthesized alert is discarded when the newest buffered entry
// carries the identical source timestamp, whatever its origin: the
// backend broadcasts the same quality alert over the shared push
// channel, so the pushed copy and the synthesized one describe a
// single event and only the first to arrive is kept.
func (m *Merger) MergeLiveSample(sample models.WaterQualitySample) {
	cls := m.classifier.Classify(sample)

	m.store.Apply("quality_stream", func(d *state.Data) {
		d.QualityTrend.Push(sample)
		s := sample
		d.LatestQuality = &s
		c := cls
		d.Classification = &c

		if !cls.IsContaminated {
			return
		}
		if last, ok := d.QualityAlerts.First(); ok &&
			last.Timestamp.Equal(sample.Timestamp.Time) {
			metrics.AlertsDedupedTotal.Inc()
			return
		}
		d.QualityAlerts.PushFront(m.synthesize(sample))
		metrics.AlertsMergedTotal.WithLabelValues("quality", "synthesized").Inc()
	})
}

func (m *Merger) synthesize(sample models.WaterQualitySample) models.QualityAlert {
	severity := severityWarning
	if sample.AIPrediction == models.ConditionDangerous {
		severity = severityCritical
	}

	analysis := defaultAnalysis
	if len(sample.AlertReasons) > 0 {
		analysis = strings.Join(sample.AlertReasons, analysisSeparator)
	}

	location := sample.PipelineID
	if location == "" {
		location = "Unknown"
	}

	return models.QualityAlert{
		ID:            uuid.NewString(),
		Event:         models.EventWaterQualityAlert,
		Severity:      severity,
		SeverityScore: clampScore(100 - sample.WQIScore),
		Location:      location,
		Analysis:      analysis,
		Timestamp:     sample.Timestamp,
		AIPrediction:  sample.AIPrediction,
		WQIScore:      sample.WQIScore,
		RiskLevel:     sample.RiskLevel,
		Synthesized:   true,
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
