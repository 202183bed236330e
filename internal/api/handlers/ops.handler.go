package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aquawatch/aquawatch-core/internal/engine"
	"github.com/aquawatch/aquawatch-core/internal/models"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

var validSimulationModes = map[models.SimulationMode]bool{
	models.ModeNormal:       true,
	models.ModeSmallLeak:    true,
	models.ModeMajorBurst:   true,
	models.ModeIntermittent: true,
	models.ModeValveFault:   true,
}

var validTicketStatuses = map[string]bool{
	models.TicketPending:    true,
	models.TicketInProgress: true,
	models.TicketResolved:   true,
}

// OpsHandler proxies operator actions through the engine: mode changes,
// ticket transitions, chat, training and export downloads.
type OpsHandler struct {
	engine *engine.Engine
	logger logger.Logger
}

func NewOpsHandler(e *engine.Engine, log logger.Logger) *OpsHandler {
	return &OpsHandler{engine: e, logger: log}
}

// POST /api/v1/simulation/mode/:mode
func (h *OpsHandler) SetSimulationMode(c *gin.Context) {
	mode := models.SimulationMode(c.Param("mode"))
	if !validSimulationModes[mode] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown simulation mode", "mode": string(mode)})
		return
	}

	if err := h.engine.SetSimulationMode(c.Request.Context(), mode); err != nil {
		h.logger.Error("simulation mode change failed", "mode", mode, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend rejected mode change"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": string(mode)})
}

// POST /api/v1/water-quality/mode/:mode
func (h *OpsHandler) SetWaterQualityMode(c *gin.Context) {
	mode := c.Param("mode")
	if mode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode is required"})
		return
	}

	if err := h.engine.SetWaterQualityMode(c.Request.Context(), mode); err != nil {
		h.logger.Error("water-quality mode change failed", "mode", mode, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend rejected mode change"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode})
}

// POST /api/v1/maintenance/:id/status
func (h *OpsHandler) UpdateTicketStatus(c *gin.Context) {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	var update models.TicketStatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !validTicketStatuses[update.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown ticket status", "status": update.Status})
		return
	}

	ticket, err := h.engine.UpdateTicketStatus(c.Request.Context(), ticketID, update)
	if err != nil {
		h.logger.Error("ticket status update failed", "ticket", ticketID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend rejected ticket update"})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// POST /api/v1/chat/message
func (h *OpsHandler) SendChatMessage(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	reply, err := h.engine.SendChatMessage(c.Request.Context(), req.Message)
	if err != nil {
		h.logger.Error("chat round-trip failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "chat backend unavailable"})
		return
	}
	c.JSON(http.StatusOK, reply)
}

// POST /api/v1/detection/train-simulated - fire-and-forget proxy.
func (h *OpsHandler) TrainSimulated(c *gin.Context) {
	h.engine.TrainSimulated(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"status": "training requested"})
}

// GET /api/v1/export/:report - streams the backend export to the
// caller, preserving the filename.
func (h *OpsHandler) DownloadExport(c *gin.Context) {
	report := c.Param("report")
	if report == "" || report != filepath.Base(report) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report name"})
		return
	}

	path, err := h.engine.DownloadExport(c.Request.Context(), report)
	if err != nil {
		h.logger.Error("export download failed", "report", report, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "export unavailable"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
