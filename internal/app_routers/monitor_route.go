package approuters

import (
	"github.com/gin-gonic/gin"
	"github.com/umachittudi2004/VedazAssingment/internal/configuration"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	monitorGroup := router.Group("/cf/api/monitor")
	{
		// GET /cf/api/monitor/stats - Get hub statistics
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
	}
}
