package presence

import (
	"sync"

	"github.com/google/uuid"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []event.WsEvent
	closed bool
	refuse bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev event.WsEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.refuse {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) received(name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		if ev.Event != name {
			continue
		}
		var userID string
		if err := ev.Decode(&userID); err == nil {
			out = append(out, userID)
		}
	}
	return out
}

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) OnPresenceChange(ch Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

func (r *recorder) snapshot() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}
