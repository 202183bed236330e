package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aquawatch/aquawatch-core/internal/state"
	"github.com/aquawatch/aquawatch-core/internal/stream"
)

// HealthHandler reports process liveness and the push channel states.
type HealthHandler struct {
	store *state.Store
}

func NewHealthHandler(store *state.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// GET /healthz - Quick health check. The process is healthy even while
// channels reconnect; connection states are informational.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	snap := h.store.Snapshot()

	connections := make(map[string]string, len(snap.Connections))
	degraded := false
	for name, st := range snap.Connections {
		connections[name] = string(st)
		if st != stream.StateOpen {
			degraded = true
		}
	}

	status := "healthy"
	if degraded {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        status,
		"service":       "aquawatch-core",
		"version":       snap.Version,
		"connections":   connections,
		"snapshot_time": snap.UpdatedAt.Format(time.RFC3339),
	})
}
