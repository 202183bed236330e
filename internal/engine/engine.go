// Package engine owns one synchronization session: the bootstrap
// fan-out, both poll loops, both push channel supervisors, and the
// operator-facing operations that flow back to the backend.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aquawatch/aquawatch-core/internal/alerts"
	"github.com/aquawatch/aquawatch-core/internal/config"
	"github.com/aquawatch/aquawatch-core/internal/models"
	"github.com/aquawatch/aquawatch-core/internal/quality"
	"github.com/aquawatch/aquawatch-core/internal/services"
	"github.com/aquawatch/aquawatch-core/internal/state"
	"github.com/aquawatch/aquawatch-core/internal/stream"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

const (
	channelAlerts       = "alerts"
	channelWaterQuality = "water_quality"
)

// Engine wires the pull and push sides together over the shared store.
// Construct with New, run with Start, stop with Close.
type Engine struct {
	cfg    *config.Config
	client *services.LeakwatchClient
	store  *state.Store
	coord  *services.SyncCoordinator
	merger *alerts.Merger
	logger logger.Logger

	alertsStream  *stream.Supervisor
	qualityStream *stream.Supervisor

	suggestionCap int

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func New(cfg *config.Config, client *services.LeakwatchClient, store *state.Store, log logger.Logger) *Engine {
	classifier := quality.New(cfg.Quality.SafeWQIThreshold)
	coord := services.NewSyncCoordinator(client, store, classifier, cfg.Poll, log)

	e := &Engine{
		cfg:           cfg,
		client:        client,
		store:         store,
		coord:         coord,
		logger:        log,
		suggestionCap: cfg.Buffers.ChatSuggestions,
	}
	e.merger = alerts.NewMerger(store, classifier, log, e.onIncident)
	return e
}

// Start runs the bootstrap fan-out and launches the poll loops and push
// channel supervisors. It returns immediately; everything runs until
// ctx is cancelled or Close is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return fmt.Errorf("engine already started or closed")
	}
	e.started = true
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	alertsURL, err := stream.ChannelURL(e.client.BaseURL(), e.cfg.Streams.AlertsPath)
	if err != nil {
		return fmt.Errorf("derive alerts channel url: %w", err)
	}
	qualityURL, err := stream.ChannelURL(e.client.BaseURL(), e.cfg.Streams.WaterQualityPath)
	if err != nil {
		return fmt.Errorf("derive water-quality channel url: %w", err)
	}

	e.alertsStream = e.newSupervisor(channelAlerts, alertsURL, e.merger.HandleAlertPayload)
	e.qualityStream = e.newSupervisor(channelWaterQuality, qualityURL, e.handleQualityPayload)

	// Streams connect while the bootstrap fan-out is in flight; live
	// pushes that arrive first win over bootstrap seeds.
	e.alertsStream.Start(ctx)
	e.qualityStream.Start(ctx)

	e.wg.Add(3)
	go func() {
		defer e.wg.Done()
		e.coord.Bootstrap(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.coord.RunTelemetryPoll(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.coord.RunInfraPoll(ctx)
	}()

	e.logger.Info("engine started", "backend", e.cfg.Backend.BaseURL)
	return nil
}

// Close tears the session down: both sockets are closed, no reconnect
// is scheduled, and every poll loop stops. Safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if e.alertsStream != nil {
		e.alertsStream.Close()
	}
	if e.qualityStream != nil {
		e.qualityStream.Close()
	}
	e.wg.Wait()
	e.logger.Info("engine stopped")
}

func (e *Engine) newSupervisor(name, url string, handler stream.Handler) *stream.Supervisor {
	return stream.NewSupervisor(stream.Options{
		Name:           name,
		URL:            url,
		ReconnectDelay: time.Duration(e.cfg.Streams.ReconnectDelayMS) * time.Millisecond,
		Handler:        handler,
		OnState: func(st stream.State) {
			e.store.SetConnectionState(name, st)
		},
		Logger: e.logger,
	})
}

// handleQualityPayload consumes one live water-quality message.
func (e *Engine) handleQualityPayload(payload []byte) error {
	var sample models.WaterQualitySample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return fmt.Errorf("undecodable water-quality payload: %w", err)
	}
	e.merger.MergeLiveSample(sample)
	return nil
}

// onIncident re-pulls the analytics bundle after an incident alert so
// the derived views catch up without waiting for a poll tick.
func (e *Engine) onIncident() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	e.coord.RefreshAnalytics(ctx)
}

// SetSimulationMode requests a backend mode change. The local mode is
// updated only after the backend confirms; a failed request leaves
// state untouched.
func (e *Engine) SetSimulationMode(ctx context.Context, mode models.SimulationMode) error {
	if err := e.client.SetSimulationMode(ctx, mode); err != nil {
		return err
	}
	e.store.Apply("operator", func(d *state.Data) {
		d.SimulationMode = mode
	})
	return nil
}

// SetWaterQualityMode requests a quality simulation mode change,
// confirmed-then-applied like SetSimulationMode.
func (e *Engine) SetWaterQualityMode(ctx context.Context, mode string) error {
	if err := e.client.SetWaterQualityMode(ctx, mode); err != nil {
		return err
	}
	e.store.Apply("operator", func(d *state.Data) {
		d.WaterQualityMode = mode
	})
	return nil
}

// UpdateTicketStatus requests a ticket transition and merges the
// server-confirmed ticket back into the list. Local copies are never
// mutated speculatively.
func (e *Engine) UpdateTicketStatus(ctx context.Context, ticketID int64, update models.TicketStatusUpdate) (*models.MaintenanceTicket, error) {
	ticket, err := e.client.UpdateTicketStatus(ctx, ticketID, update)
	if err != nil {
		return nil, err
	}

	e.store.Apply("operator", func(d *state.Data) {
		for i := range d.Tickets {
			if d.Tickets[i].ID == ticket.ID {
				d.Tickets[i] = *ticket
				return
			}
		}
		d.Tickets = append(d.Tickets, *ticket)
	})
	return ticket, nil
}

// SendChatMessage round-trips one operator message: the user entry is
// appended immediately, the bot reply after the backend answers.
// Suggestions are capped before they reach the log.
func (e *Engine) SendChatMessage(ctx context.Context, text string) (*models.ChatMessage, error) {
	userMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.ChatRoleUser,
		Text:      text,
		Timestamp: models.At(time.Now()),
	}
	e.store.Apply("chat", func(d *state.Data) {
		d.Chat = append(d.Chat, userMsg)
	})

	reply, err := e.client.SendChatMessage(ctx, text)
	if err != nil {
		return nil, err
	}

	suggestions := reply.Suggestions
	if len(suggestions) > e.suggestionCap {
		suggestions = suggestions[:e.suggestionCap]
	}
	botMsg := models.ChatMessage{
		ID:          uuid.NewString(),
		Role:        models.ChatRoleBot,
		Text:        reply.Answer,
		Suggestions: suggestions,
		Timestamp:   reply.Timestamp,
	}
	if botMsg.Timestamp.IsZero() {
		botMsg.Timestamp = models.At(time.Now())
	}
	e.store.Apply("chat", func(d *state.Data) {
		d.Chat = append(d.Chat, botMsg)
	})
	return &botMsg, nil
}

// TrainSimulated kicks off backend training. Fire-and-forget: the
// outcome is logged, no state changes either way.
func (e *Engine) TrainSimulated(ctx context.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 60*time.Second)
		defer cancel()
		if err := e.client.TrainSimulated(ctx); err != nil {
			e.logger.Warn("simulated training request failed", "error", err)
			return
		}
		e.logger.Info("simulated training requested")
	}()
}

// DownloadExport streams a backend report into the configured export
// directory and returns the written path.
func (e *Engine) DownloadExport(ctx context.Context, report string) (string, error) {
	return e.client.DownloadExport(ctx, report, e.cfg.Export.Dir)
}
