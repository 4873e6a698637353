package model

import "time"

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"` // "healthy" or "idle"
	Connections ConnectionStats `json:"connections"`
	Lanes       []LaneInfo      `json:"lanes"`
	Sessions    []SessionInfo   `json:"sessions"`
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalSockets  int `json:"totalSockets"`  // upgraded websockets, joined or not
	TotalHandles  int `json:"totalHandles"`  // sockets bound to a user
	OnlineUsers   int `json:"onlineUsers"`   // users with at least one handle
	UnjoinedConns int `json:"unjoinedConns"` // sockets that have not sent join yet
}

// LaneInfo reports the backlog of one inbound worker lane
type LaneInfo struct {
	Lane     int `json:"lane"`
	Queued   int `json:"queued"`
	Capacity int `json:"capacity"`
}

// SessionInfo describes the session entry of one online user
type SessionInfo struct {
	UserID   string    `json:"userId"`
	Handles  int       `json:"handles"`
	JoinedAt time.Time `json:"joinedAt"`
}
