package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/aquawatch/aquawatch-core/internal/state"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

const (
	writeTimeout      = 10 * time.Second
	heartbeatInterval = 30 * time.Second
)

// StateHandler exposes the read model: the current composite snapshot
// and a websocket stream of every new one.
type StateHandler struct {
	store    *state.Store
	upgrader websocket.Upgrader
	logger   logger.Logger
}

func NewStateHandler(store *state.Store, log logger.Logger) *StateHandler {
	return &StateHandler{
		store: store,
		upgrader: websocket.Upgrader{
			// TODO: tighten in prod (check Origin/Host)
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// GET /api/v1/state/snapshot
func (h *StateHandler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// GET /api/v1/state/stream - websocket publishing each new snapshot.
// The subscription carries the latest snapshot only, so a slow client
// skips intermediate versions instead of stalling the emitter.
func (h *StateHandler) HandleStateStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.store.Subscribe()
	defer cancel()

	h.logger.Info("snapshot stream client connected", "client_ip", c.ClientIP())

	// drain reads so close frames are noticed
	readErr := make(chan struct{})
	go func() {
		defer close(readErr)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// the client starts from the current snapshot, then follows updates
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(h.store.Snapshot()); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case snap := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				h.logger.Warn("snapshot stream write failed", "error", err)
				return
			}

		case <-heartbeat.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-readErr:
			h.logger.Info("snapshot stream client disconnected", "client_ip", c.ClientIP())
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}
