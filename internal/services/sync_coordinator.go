package services

import (
	"context"
	"sync"
	"time"

	"github.com/aquawatch/aquawatch-core/internal/config"
	"github.com/aquawatch/aquawatch-core/internal/metrics"
	"github.com/aquawatch/aquawatch-core/internal/models"
	"github.com/aquawatch/aquawatch-core/internal/quality"
	"github.com/aquawatch/aquawatch-core/internal/state"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

// SyncCoordinator drives the pull side of a session: the one-shot
// bootstrap fan-out and the two periodic poll loops. Every fetch
// failure is logged and swallowed; the previous value of the affected
// slice of state is retained.
type SyncCoordinator struct {
	client     *LeakwatchClient
	store      *state.Store
	classifier *quality.Classifier
	logger     logger.Logger

	telemetryInterval time.Duration
	infraInterval     time.Duration
	bootstrapTimeout  time.Duration
	historyLimit      int
}

func NewSyncCoordinator(
	client *LeakwatchClient,
	store *state.Store,
	classifier *quality.Classifier,
	cfg config.PollConfig,
	log logger.Logger,
) *SyncCoordinator {
	return &SyncCoordinator{
		client:            client,
		store:             store,
		classifier:        classifier,
		logger:            log,
		telemetryInterval: time.Duration(cfg.TelemetryIntervalMS) * time.Millisecond,
		infraInterval:     time.Duration(cfg.InfraIntervalMS) * time.Millisecond,
		bootstrapTimeout:  time.Duration(cfg.BootstrapTimeoutMS) * time.Millisecond,
		historyLimit:      cfg.QualityHistoryLimit,
	}
}

// Bootstrap performs the initial fan-out. Endpoints are independent: a
// failed fetch leaves its slice of state empty and never blocks the
// others. Returns once every fetch has finished or the bootstrap
// timeout has elapsed.
func (s *SyncCoordinator) Bootstrap(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.bootstrapTimeout)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				metrics.BootstrapFetchesTotal.WithLabelValues(name, "error").Inc()
				s.logger.Warn("bootstrap fetch failed", "endpoint", name, "error", err)
				return
			}
			metrics.BootstrapFetchesTotal.WithLabelValues(name, "success").Inc()
		}()
	}

	run("summary", s.refreshSummary)
	run("trends", s.refreshTrends)
	run("risk", s.refreshRisk)
	run("geo", s.refreshGeo)
	run("tickets", s.RefreshTickets)
	run("image_history", s.refreshImageHistory)
	run("infra", s.pollInfraOnce)
	run("telemetry", s.pollTelemetryOnce)
	run("water_quality", s.bootstrapWaterQuality)

	wg.Wait()
	s.logger.Info("bootstrap complete", "took", time.Since(start))
}

// RunTelemetryPoll polls the simulated pipeline reading until the
// context is cancelled.
func (s *SyncCoordinator) RunTelemetryPoll(ctx context.Context) {
	ticker := time.NewTicker(s.telemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pollTelemetryOnce(ctx); err != nil {
				metrics.PollRequestsTotal.WithLabelValues("telemetry", "error").Inc()
				s.logger.Warn("telemetry poll failed", "error", err)
				continue
			}
			metrics.PollRequestsTotal.WithLabelValues("telemetry", "success").Inc()
		}
	}
}

// RunInfraPoll polls the infrastructure-health report until the context
// is cancelled.
func (s *SyncCoordinator) RunInfraPoll(ctx context.Context) {
	ticker := time.NewTicker(s.infraInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pollInfraOnce(ctx); err != nil {
				metrics.PollRequestsTotal.WithLabelValues("infra", "error").Inc()
				s.logger.Warn("infra poll failed", "error", err)
				continue
			}
			metrics.PollRequestsTotal.WithLabelValues("infra", "success").Inc()
		}
	}
}

// RefreshAnalytics re-pulls the analytics bundle. Runs after an
// incident alert lands so derived views catch up without waiting for
// the next poll tick. Failures are independent per endpoint.
func (s *SyncCoordinator) RefreshAnalytics(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.bootstrapTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for name, fn := range map[string]func(context.Context) error{
		"summary": s.refreshSummary,
		"trends":  s.refreshTrends,
		"risk":    s.refreshRisk,
		"geo":     s.refreshGeo,
		"tickets": s.RefreshTickets,
	} {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				s.logger.Warn("analytics refresh failed", "endpoint", name, "error", err)
			}
		}(name, fn)
	}
	wg.Wait()
}

// RefreshTickets replaces the local ticket list with the server's.
func (s *SyncCoordinator) RefreshTickets(ctx context.Context) error {
	tickets, err := s.client.FetchTickets(ctx)
	if err != nil {
		return err
	}
	s.store.Apply("bootstrap", func(d *state.Data) {
		d.Tickets = tickets
	})
	return nil
}

func (s *SyncCoordinator) pollTelemetryOnce(ctx context.Context) error {
	sample, err := s.client.FetchTelemetry(ctx)
	if err != nil {
		return err
	}
	s.store.Apply("telemetry_poll", func(d *state.Data) {
		d.Telemetry.Push(*sample)
		d.TelemetryStats = &models.TelemetryStats{
			Pressure: sample.Pressure,
			FlowRate: sample.FlowRate,
			Mode:     sample.Mode,
		}
		if sample.Mode != "" {
			d.SimulationMode = sample.Mode
		}
	})
	return nil
}

func (s *SyncCoordinator) pollInfraOnce(ctx context.Context) error {
	snap, err := s.client.FetchInfraHealth(ctx)
	if err != nil {
		return err
	}
	// Wholesale replace; a failed poll above kept the previous report.
	s.store.Apply("infra_poll", func(d *state.Data) {
		d.Infra = snap
	})
	return nil
}

// bootstrapWaterQuality runs the two-step quality bootstrap: mode
// status first, then recent history. The backend returns history
// newest-first; the trend buffer wants ascending order. Live pushes may
// have landed before the history fetch completes, so rows are prepended
// ahead of whatever the buffer already holds, skipping any row not
// strictly older than the current head — the trend stays ascending no
// matter which origin populated it first. The newest row also seeds the
// latest value and classification unless a live push already produced
// one.
func (s *SyncCoordinator) bootstrapWaterQuality(ctx context.Context) error {
	status, err := s.client.FetchWaterQualityStatus(ctx)
	if err != nil {
		return err
	}

	history, err := s.client.FetchWaterQualityHistory(ctx, s.historyLimit)
	if err != nil {
		return err
	}

	s.store.Apply("bootstrap", func(d *state.Data) {
		d.WaterQualityMode = status.CurrentMode

		if len(history) == 0 {
			return
		}
		for _, row := range history {
			if d.QualityTrend.Len() == d.QualityTrend.Cap() {
				break
			}
			if head, ok := d.QualityTrend.First(); ok &&
				!row.Timestamp.Before(head.Timestamp.Time) {
				continue
			}
			d.QualityTrend.PushFront(row)
		}
		if d.LatestQuality == nil {
			newest := history[0]
			d.LatestQuality = &newest
			cls := s.classifier.Classify(newest)
			d.Classification = &cls
		}
	})
	return nil
}

func (s *SyncCoordinator) refreshSummary(ctx context.Context) error {
	raw, err := s.client.FetchSummary(ctx)
	if err != nil {
		return err
	}
	s.store.Apply("bootstrap", func(d *state.Data) { d.Summary = raw })
	return nil
}

func (s *SyncCoordinator) refreshTrends(ctx context.Context) error {
	raw, err := s.client.FetchTrends(ctx)
	if err != nil {
		return err
	}
	s.store.Apply("bootstrap", func(d *state.Data) { d.Trends = raw })
	return nil
}

func (s *SyncCoordinator) refreshRisk(ctx context.Context) error {
	raw, err := s.client.FetchRiskAssessment(ctx)
	if err != nil {
		return err
	}
	s.store.Apply("bootstrap", func(d *state.Data) { d.Risk = raw })
	return nil
}

func (s *SyncCoordinator) refreshGeo(ctx context.Context) error {
	raw, err := s.client.FetchGeoTopology(ctx)
	if err != nil {
		return err
	}
	s.store.Apply("bootstrap", func(d *state.Data) { d.Geo = raw })
	return nil
}

func (s *SyncCoordinator) refreshImageHistory(ctx context.Context) error {
	records, err := s.client.FetchImageHistory(ctx)
	if err != nil {
		return err
	}
	s.store.Apply("bootstrap", func(d *state.Data) { d.ImageHistory = records })
	return nil
}
