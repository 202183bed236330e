package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquawatch/aquawatch-core/internal/config"
	"github.com/aquawatch/aquawatch-core/internal/engine"
	"github.com/aquawatch/aquawatch-core/internal/models"
	"github.com/aquawatch/aquawatch-core/internal/services"
	"github.com/aquawatch/aquawatch-core/internal/state"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

// newTestServer wires a server against a stub backend without starting
// the engine's streams or pollers.
func newTestServer(t *testing.T, backend http.Handler) (*httptest.Server, *state.Store) {
	t.Helper()
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	cfg := &config.Config{
		Environment: "test",
		Port:        8090,
		LogLevel:    "error",
		Backend:     config.BackendConfig{BaseURL: backendSrv.URL, Timeout: 2000},
		Streams: config.StreamsConfig{
			AlertsPath:       "/api/v1/alerts/ws/alerts",
			WaterQualityPath: "/api/v1/water-quality/ws/live",
			ReconnectDelayMS: 3000,
		},
		Poll: config.PollConfig{
			TelemetryIntervalMS: 1000,
			InfraIntervalMS:     5000,
			QualityHistoryLimit: 20,
			BootstrapTimeoutMS:  2000,
		},
		Buffers: config.BuffersConfig{
			Telemetry: 30, QualityTrend: 30, Alerts: 10, QualityAlerts: 8, ChatSuggestions: 3,
		},
		Quality: config.QualityConfig{SafeWQIThreshold: 70},
		Export:  config.ExportConfig{Dir: t.TempDir()},
	}

	log := logger.New("error")
	store := state.NewStore(state.Capacities{
		Telemetry: 30, QualityTrend: 30, Alerts: 10, QualityAlerts: 8,
	})
	client := services.NewLeakwatchClient(cfg.Backend, log)
	eng := engine.New(cfg, client, store, log)

	apiSrv := httptest.NewServer(NewServer(cfg, log, store, eng).Handler())
	t.Cleanup(apiSrv.Close)
	return apiSrv, store
}

func TestGetSnapshot(t *testing.T) {
	srv, store := newTestServer(t, http.NotFoundHandler())

	store.Apply("test", func(d *state.Data) {
		d.SimulationMode = models.ModeNormal
	})

	resp, err := http.Get(srv.URL + "/api/v1/state/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap state.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, models.ModeNormal, snap.SimulationMode)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, http.NotFoundHandler())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, http.NotFoundHandler())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "aquawatch_core_")
}

func TestSetSimulationMode_RejectsUnknownMode(t *testing.T) {
	srv, _ := newTestServer(t, http.NotFoundHandler())

	resp, err := http.Post(srv.URL+"/api/v1/simulation/mode/tsunami", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetSimulationMode_ProxiesToBackend(t *testing.T) {
	srv, store := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/simulation/mode/small_leak", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	resp, err := http.Post(srv.URL+"/api/v1/simulation/mode/small_leak", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.ModeSmallLeak, store.Snapshot().SimulationMode)
}

func TestUpdateTicketStatus_Validation(t *testing.T) {
	srv, _ := newTestServer(t, http.NotFoundHandler())

	resp, err := http.Post(srv.URL+"/api/v1/maintenance/abc/status", "application/json",
		strings.NewReader(`{"status":"Resolved"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "non-numeric id rejected")

	resp, err = http.Post(srv.URL+"/api/v1/maintenance/1/status", "application/json",
		strings.NewReader(`{"status":"Teleported"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown status rejected")
}

func TestSendChatMessage_RequiresMessage(t *testing.T) {
	srv, _ := newTestServer(t, http.NotFoundHandler())

	resp, err := http.Post(srv.URL+"/api/v1/chat/message", "application/json",
		strings.NewReader(`{"message":"  "}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTrainSimulated_Accepted(t *testing.T) {
	srv, _ := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp, err := http.Post(srv.URL+"/api/v1/detection/train-simulated", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestStateStream_DeliversSnapshots(t *testing.T) {
	srv, store := newTestServer(t, http.NotFoundHandler())

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/state/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// first frame is the current snapshot
	var first state.Snapshot
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&first))

	store.Apply("test", func(d *state.Data) {
		d.WaterQualityMode = "contaminated"
	})

	var next state.Snapshot
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "contaminated", next.WaterQualityMode)
	assert.Greater(t, next.Version, first.Version)
}
