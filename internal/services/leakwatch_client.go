// Package services holds the leakwatch backend client and the sync
// coordinator that drives bootstrap and the periodic pull loops.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aquawatch/aquawatch-core/internal/config"
	"github.com/aquawatch/aquawatch-core/internal/metrics"
	"github.com/aquawatch/aquawatch-core/internal/models"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

// LeakwatchClient talks to the leakwatch backend's REST surface. All
// methods take a context and return explicit errors; transport and 5xx
// failures are retried with exponential backoff before giving up.
type LeakwatchClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  logger.Logger

	// retry knobs
	retries   int
	backoffMS int // base backoff (ms) for attempt 1; then doubles
}

func NewLeakwatchClient(cfg config.BackendConfig, log logger.Logger) *LeakwatchClient {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LeakwatchClient{
		baseURL:   cfg.BaseURL,
		token:     cfg.Token,
		client:    &http.Client{Timeout: timeout},
		logger:    log,
		retries:   3,
		backoffMS: 500, // 0.5s, 1s, 2s
	}
}

// BaseURL exposes the configured backend root so the stream layer can
// derive its websocket URLs from the same origin.
func (c *LeakwatchClient) BaseURL() string { return c.baseURL }

// FetchTelemetry pulls the current simulated pipeline reading.
func (c *LeakwatchClient) FetchTelemetry(ctx context.Context) (*models.TelemetrySample, error) {
	var sample models.TelemetrySample
	if err := c.getJSON(ctx, "/api/v1/simulation/data", &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// FetchSummary pulls the analytics summary block. The payload is kept
// opaque; the engine stores and republishes it without interpretation.
func (c *LeakwatchClient) FetchSummary(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/api/v1/analytics/summary")
}

func (c *LeakwatchClient) FetchTrends(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/api/v1/analytics/trends")
}

func (c *LeakwatchClient) FetchRiskAssessment(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/api/v1/analytics/risk-assessment")
}

func (c *LeakwatchClient) FetchGeoTopology(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/api/v1/localization/geo-json")
}

func (c *LeakwatchClient) FetchTickets(ctx context.Context) ([]models.MaintenanceTicket, error) {
	var tickets []models.MaintenanceTicket
	if err := c.getJSON(ctx, "/api/v1/maintenance/", &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *LeakwatchClient) FetchImageHistory(ctx context.Context) ([]models.LeakImageRecord, error) {
	var records []models.LeakImageRecord
	if err := c.getJSON(ctx, "/api/v1/leak-image-history", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchInfraHealth pulls the unified infrastructure-health report.
func (c *LeakwatchClient) FetchInfraHealth(ctx context.Context) (*models.InfraHealthSnapshot, error) {
	var snap models.InfraHealthSnapshot
	if err := c.getJSON(ctx, "/api/v1/infrastructure/health", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *LeakwatchClient) FetchWaterQualityStatus(ctx context.Context) (*models.WaterQualityStatus, error) {
	var status models.WaterQualityStatus
	if err := c.getJSON(ctx, "/api/v1/water-quality/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// FetchWaterQualityHistory pulls the most recent scored samples. The
// backend returns them newest-first.
func (c *LeakwatchClient) FetchWaterQualityHistory(ctx context.Context, limit int) ([]models.WaterQualitySample, error) {
	var samples []models.WaterQualitySample
	path := fmt.Sprintf("/api/v1/water-quality/history?limit=%d", limit)
	if err := c.getJSON(ctx, path, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// SetSimulationMode asks the backend to switch the leak simulation
// mode. The caller must not assume the new mode before a nil return.
func (c *LeakwatchClient) SetSimulationMode(ctx context.Context, mode models.SimulationMode) error {
	return c.postNoBody(ctx, "/api/v1/simulation/mode/"+string(mode))
}

func (c *LeakwatchClient) SetWaterQualityMode(ctx context.Context, mode string) error {
	return c.postNoBody(ctx, "/api/v1/water-quality/mode/"+mode)
}

// TrainSimulated kicks off backend model training. Fire-and-forget:
// the error is for logging only, no state changes on either outcome.
func (c *LeakwatchClient) TrainSimulated(ctx context.Context) error {
	return c.postNoBody(ctx, "/api/v1/detection/train-simulated")
}

// UpdateTicketStatus requests a ticket status transition and returns
// the server-confirmed ticket.
func (c *LeakwatchClient) UpdateTicketStatus(ctx context.Context, ticketID int64, update models.TicketStatusUpdate) (*models.MaintenanceTicket, error) {
	body, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("encode ticket update: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/maintenance/%d", c.baseURL, ticketID)
	resp, err := c.doRequestWithRetry(ctx, http.MethodPatch, url, bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("ticket update request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var ticket models.MaintenanceTicket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return nil, fmt.Errorf("decode ticket response: %w", err)
	}
	return &ticket, nil
}

// SendChatMessage round-trips one operator message through the backend
// chatbot.
func (c *LeakwatchClient) SendChatMessage(ctx context.Context, message string) (*models.ChatResponse, error) {
	body, err := json.Marshal(models.ChatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, c.baseURL+"/api/v1/chatbot/message", bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var reply models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &reply, nil
}

// DownloadExport streams a backend export report into dir, honoring the
// content-disposition filename hint when present. Returns the written
// file path.
func (c *LeakwatchClient) DownloadExport(ctx context.Context, report, dir string) (string, error) {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, c.baseURL+"/api/v1/analytics/export/"+report, nil, nil)
	if err != nil {
		return "", fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("backend returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	filename := exportFilename(resp.Header.Get("Content-Disposition"), report)
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	c.logger.Info("export downloaded", "report", report, "path", path)
	return path, nil
}

func exportFilename(disposition, report string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != string(filepath.Separator) {
				return name
			}
		}
	}
	return report + ".csv"
}

func (c *LeakwatchClient) getRaw(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, c.baseURL+path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("backend returned invalid JSON for %s", path)
	}
	return json.RawMessage(raw), nil
}

func (c *LeakwatchClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, c.baseURL+path, nil, nil)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode backend response for %s: %w", path, err)
	}
	return nil
}

func (c *LeakwatchClient) postNoBody(ctx context.Context, path string) error {
	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, c.baseURL+path, nil, nil)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}
	return nil
}

func (c *LeakwatchClient) doRequestWithRetry(
	ctx context.Context,
	method, urlStr string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {

	var payload []byte
	if body != nil {
		var err error
		payload, err = io.ReadAll(body)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	backoff := time.Duration(c.backoffMS) * time.Millisecond

	for attempt := 1; attempt <= c.retries; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		// transport error (timeout, connection refused, etc.)
		if err != nil {
			lastErr = err
			metrics.BackendRequestsTotal.WithLabelValues(method, "transport_error").Inc()
			c.logger.Warn("backend request failed (transport)",
				"attempt", attempt, "method", method, "url", urlStr, "error", err)
		} else if resp.StatusCode >= 500 {
			// server error -> retry
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
			_ = resp.Body.Close()
			metrics.BackendRequestsTotal.WithLabelValues(method, "server_error").Inc()
			c.logger.Warn("backend 5xx response, retrying",
				"attempt", attempt, "method", method, "url", urlStr, "status", resp.StatusCode)
		} else {
			// success or non-retryable status
			metrics.BackendRequestsTotal.WithLabelValues(method, "ok").Inc()
			return resp, nil
		}

		// no more retries?
		if attempt == c.retries || ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return nil, lastErr
}

func readBodySnippet(r io.Reader) string {
	const max = 8 << 10 // 8KB
	b, _ := io.ReadAll(io.LimitReader(r, max))
	return string(b)
}
