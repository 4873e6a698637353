package hub

import (
	"github.com/umachittudi2004/VedazAssingment/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	connectionStats := ms.getConnectionStats()

	// Determine overall health status
	status := "healthy"
	if connectionStats.TotalSockets == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: connectionStats,
		Lanes:       ms.getLaneStats(),
		Sessions:    ms.hub.registry.Sessions(),
	}
}

// getConnectionStats returns connection statistics
func (ms *MonitorService) getConnectionStats() model.ConnectionStats {
	ms.hub.clientsMu.RLock()
	sockets := len(ms.hub.clients)
	ms.hub.clientsMu.RUnlock()

	handles := ms.hub.registry.ConnectionCount()
	return model.ConnectionStats{
		TotalSockets:  sockets,
		TotalHandles:  handles,
		OnlineUsers:   len(ms.hub.registry.OnlineUsers()),
		UnjoinedConns: max(sockets-handles, 0),
	}
}

// getLaneStats returns the backlog of each worker lane
func (ms *MonitorService) getLaneStats() []model.LaneInfo {
	lanes := make([]model.LaneInfo, 0, len(ms.hub.lanes))
	for i, lane := range ms.hub.lanes {
		lanes = append(lanes, model.LaneInfo{
			Lane:     i,
			Queued:   len(lane),
			Capacity: cap(lane),
		})
	}
	return lanes
}
