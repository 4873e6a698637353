package service

import (
	"sync"

	"github.com/umachittudi2004/VedazAssingment/internal/event"
)

// fakeDirectory records every event addressed to a user. Users listed in
// refusing are online but every send to them fails.
type fakeDirectory struct {
	mu       sync.Mutex
	online   map[string]bool
	refusing map[string]bool
	sent     map[string][]event.WsEvent
}

func newFakeDirectory(online ...string) *fakeDirectory {
	d := &fakeDirectory{
		online:   make(map[string]bool),
		refusing: make(map[string]bool),
		sent:     make(map[string][]event.WsEvent),
	}
	for _, u := range online {
		d.online[u] = true
	}
	return d
}

func (d *fakeDirectory) IsOnline(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online[userID]
}

func (d *fakeDirectory) SendToUser(userID string, ev event.WsEvent) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.online[userID] || d.refusing[userID] {
		return 0
	}
	d.sent[userID] = append(d.sent[userID], ev)
	return 1
}

func (d *fakeDirectory) events(userID string) []event.WsEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]event.WsEvent(nil), d.sent[userID]...)
}

func (d *fakeDirectory) names(userID string) []string {
	var out []string
	for _, ev := range d.events(userID) {
		out = append(out, ev.Event)
	}
	return out
}
