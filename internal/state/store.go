// Package state owns every buffer and latest-value field the consumer
// can observe. All writes funnel through Apply, which runs one mutation
// at a time, fully applied, and republishes an immutable composite
// snapshot before the next mutation can run. Consumers read snapshots
// and can never alias live memory or observe a half-applied update.
package state

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aquawatch/aquawatch-core/internal/metrics"
	"github.com/aquawatch/aquawatch-core/internal/models"
	"github.com/aquawatch/aquawatch-core/internal/quality"
	"github.com/aquawatch/aquawatch-core/internal/series"
	"github.com/aquawatch/aquawatch-core/internal/stream"
)

// Data is the mutable interior of the store, handed to mutation
// functions inside Apply. Nothing outside a mutation may hold a
// reference to it.
type Data struct {
	Telemetry     *series.Buffer[models.TelemetrySample]
	QualityTrend  *series.Buffer[models.WaterQualitySample]
	Alerts        *series.Buffer[models.Alert]        // newest-first
	QualityAlerts *series.Buffer[models.QualityAlert] // newest-first

	TelemetryStats *models.TelemetryStats
	LatestQuality  *models.WaterQualitySample
	Classification *quality.Classification

	Infra   *models.InfraHealthSnapshot
	Tickets []models.MaintenanceTicket

	Summary      json.RawMessage
	Trends       json.RawMessage
	Geo          json.RawMessage
	Risk         json.RawMessage
	ImageHistory []models.LeakImageRecord

	Chat []models.ChatMessage

	SimulationMode   models.SimulationMode
	WaterQualityMode string

	Connections map[string]stream.State
}

// Snapshot is the externally observable composite. Every field is a
// copy; snapshots are safe to retain and read concurrently.
type Snapshot struct {
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`

	Telemetry      []models.TelemetrySample  `json:"telemetry"`
	TelemetryStats *models.TelemetryStats    `json:"telemetry_stats,omitempty"`
	QualityTrend   []models.WaterQualitySample `json:"quality_trend"`
	LatestQuality  *models.WaterQualitySample  `json:"latest_quality,omitempty"`
	Classification *quality.Classification     `json:"classification,omitempty"`

	Alerts        []models.Alert        `json:"alerts"`
	QualityAlerts []models.QualityAlert `json:"quality_alerts"`

	Infra   *models.InfraHealthSnapshot `json:"infrastructure,omitempty"`
	Tickets []models.MaintenanceTicket  `json:"tickets"`

	Summary      json.RawMessage          `json:"summary,omitempty"`
	Trends       json.RawMessage          `json:"trends,omitempty"`
	Geo          json.RawMessage          `json:"geo,omitempty"`
	Risk         json.RawMessage          `json:"risk,omitempty"`
	ImageHistory []models.LeakImageRecord `json:"image_history,omitempty"`

	Chat []models.ChatMessage `json:"chat"`

	SimulationMode   models.SimulationMode   `json:"simulation_mode,omitempty"`
	WaterQualityMode string                  `json:"water_quality_mode,omitempty"`
	Connections      map[string]stream.State `json:"connections"`
}

// Capacities fixes the per-series buffer sizes.
type Capacities struct {
	Telemetry     int
	QualityTrend  int
	Alerts        int
	QualityAlerts int
}

// Store is the single writer for all session state.
type Store struct {
	mu      sync.Mutex
	data    Data
	version uint64

	current atomic.Pointer[Snapshot]

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}
}

func NewStore(caps Capacities) *Store {
	s := &Store{
		data: Data{
			Telemetry:     series.NewBuffer[models.TelemetrySample](caps.Telemetry),
			QualityTrend:  series.NewBuffer[models.WaterQualitySample](caps.QualityTrend),
			Alerts:        series.NewBuffer[models.Alert](caps.Alerts),
			QualityAlerts: series.NewBuffer[models.QualityAlert](caps.QualityAlerts),
			Connections:   make(map[string]stream.State),
		},
		subs: make(map[chan Snapshot]struct{}),
	}
	snap := s.buildSnapshotLocked()
	s.current.Store(&snap)
	return s
}

// Apply runs one mutation, rebuilds the snapshot, and notifies
// subscribers. The source label feeds the mutation counter. Store and
// publish happen under the mutation lock so concurrent Applies can
// never install or deliver snapshots out of version order; publish
// never blocks, so holding the lock across it is safe.
func (s *Store) Apply(source string, fn func(*Data)) {
	s.mu.Lock()
	fn(&s.data)
	s.version++
	snap := s.buildSnapshotLocked()
	s.current.Store(&snap)
	s.publish(snap)
	s.mu.Unlock()

	metrics.EventsApplied.WithLabelValues(source).Inc()
}

// Snapshot returns the most recently published composite.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// SetConnectionState records a channel's supervisor state.
func (s *Store) SetConnectionState(channel string, st stream.State) {
	s.Apply("connection", func(d *Data) {
		d.Connections[channel] = st
	})
}

// Subscribe registers a consumer for snapshot updates. The channel
// carries the latest snapshot only: when the consumer lags, stale
// intermediate snapshots are replaced, never queued, so the emitter is
// never blocked. The returned cancel function is idempotent.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	metrics.SnapshotSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
			metrics.SnapshotSubscribers.Dec()
		})
	}
	return ch, cancel
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale pending snapshot, keep the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Store) buildSnapshotLocked() Snapshot {
	d := &s.data
	snap := Snapshot{
		Version:          s.version,
		UpdatedAt:        time.Now(),
		Telemetry:        d.Telemetry.Items(),
		QualityTrend:     d.QualityTrend.Items(),
		Alerts:           d.Alerts.Items(),
		QualityAlerts:    d.QualityAlerts.Items(),
		Summary:          d.Summary,
		Trends:           d.Trends,
		Geo:              d.Geo,
		Risk:             d.Risk,
		SimulationMode:   d.SimulationMode,
		WaterQualityMode: d.WaterQualityMode,
	}

	if d.TelemetryStats != nil {
		stats := *d.TelemetryStats
		snap.TelemetryStats = &stats
	}
	if d.LatestQuality != nil {
		latest := *d.LatestQuality
		snap.LatestQuality = &latest
	}
	if d.Classification != nil {
		cls := *d.Classification
		snap.Classification = &cls
	}
	if d.Infra != nil {
		infra := *d.Infra
		snap.Infra = &infra
	}

	snap.Tickets = make([]models.MaintenanceTicket, len(d.Tickets))
	copy(snap.Tickets, d.Tickets)

	snap.ImageHistory = make([]models.LeakImageRecord, len(d.ImageHistory))
	copy(snap.ImageHistory, d.ImageHistory)

	snap.Chat = make([]models.ChatMessage, len(d.Chat))
	copy(snap.Chat, d.Chat)

	snap.Connections = make(map[string]stream.State, len(d.Connections))
	for k, v := range d.Connections {
		snap.Connections[k] = v
	}

	return snap
}
