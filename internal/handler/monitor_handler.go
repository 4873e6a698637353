package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
)

// StatsProvider reports hub statistics.
type StatsProvider interface {
	GetStats() model.MonitorResponse
}

// MonitorHandler handles monitoring API endpoints
type MonitorHandler interface {
	GetHubStats(c *gin.Context)
}

type monitorHandler struct {
	monitorService StatsProvider
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(monitorService StatsProvider) MonitorHandler {
	return &monitorHandler{
		monitorService: monitorService,
	}
}

// GetHubStats returns current hub statistics
// @Summary Get WebSocket hub statistics
// @Description Returns connection counts, worker lane backlog and online sessions
// @Tags Monitor
// @Produce json
// @Success 200 {object} model.MonitorResponse
// @Router /cf/api/monitor/stats [get]
func (h *monitorHandler) GetHubStats(c *gin.Context) {
	stats := h.monitorService.GetStats()

	c.JSON(http.StatusOK, gin.H{
		"HttpStatusCode": http.StatusOK,
		"ResponseBody":   stats,
		"IsSuccess":      true,
		"Message":        "Hub statistics retrieved successfully",
	})
}
