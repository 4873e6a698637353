// Package presence tracks which users have live connections and publishes
// online/offline transitions.
package presence

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
)

// ErrConnClosed is returned by Join for a handle whose socket is already closed.
var ErrConnClosed = errors.New("connection already closed")

// Conn is one live connection handle of a user.
// Send must not block: a slow or dead connection reports false.
type Conn interface {
	ID() string
	Send(ev event.WsEvent) bool
	IsClosed() bool
}

// Change is an online/offline transition of a user.
type Change struct {
	UserID string
	Online bool
	At     time.Time
}

// Listener receives transitions in the order they happen.
// OnPresenceChange is called with the registry lock held and must not block.
type Listener interface {
	OnPresenceChange(Change)
}

type session struct {
	userID   string
	handles  map[string]Conn
	joinedAt time.Time
}

// Registry maps users to their set of live connection handles.
// A handle belongs to at most one user at a time.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*session // user id -> session
	owners    map[string]string   // connection id -> user id
	listeners []Listener
	now       func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		owners:   make(map[string]string),
		now:      time.Now,
	}
}

// Subscribe adds a transition listener.
func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Join registers c under userID and reports whether the user just came
// online. Joining the same handle twice for the same user is a no-op; joining
// a handle owned by another user moves it.
func (r *Registry) Join(userID string, c Conn) (bool, error) {
	if userID == "" {
		return false, errs.Validation("user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Checked under the lock: a handle is closed before it leaves, so a join
	// that loses the race against leave can never re-register it.
	if c.IsClosed() {
		return false, ErrConnClosed
	}

	connID := c.ID()
	if owner, ok := r.owners[connID]; ok {
		if owner == userID {
			return false, nil
		}
		r.detachLocked(owner, connID)
	}

	s, ok := r.sessions[userID]
	if !ok {
		s = &session{
			userID:   userID,
			handles:  make(map[string]Conn),
			joinedAt: r.now(),
		}
		r.sessions[userID] = s
	}
	s.handles[connID] = c
	r.owners[connID] = userID

	if !ok {
		r.emitLocked(Change{UserID: userID, Online: true, At: s.joinedAt})
	}
	return !ok, nil
}

// Leave removes c from its owner. It returns the owner and whether the owner
// went offline. Unknown handles are ignored.
func (r *Registry) Leave(c Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[c.ID()]
	if !ok {
		return "", false
	}
	return owner, r.detachLocked(owner, c.ID())
}

func (r *Registry) detachLocked(userID, connID string) bool {
	delete(r.owners, connID)

	s, ok := r.sessions[userID]
	if !ok {
		return false
	}
	delete(s.handles, connID)
	if len(s.handles) > 0 {
		return false
	}

	delete(r.sessions, userID)
	r.emitLocked(Change{UserID: userID, Online: false, At: r.now()})
	return true
}

func (r *Registry) emitLocked(ch Change) {
	for _, l := range r.listeners {
		l.OnPresenceChange(ch)
	}
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// OwnerOf returns the user a connection is joined as.
func (r *Registry) OwnerOf(c Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[c.ID()]
	return owner, ok
}

// HandlesFor returns a snapshot of the user's handles, possibly empty.
func (r *Registry) HandlesFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	return lo.Values(s.handles)
}

// OnlineUsers returns the ids of all online users, sorted.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := lo.Keys(r.sessions)
	sort.Strings(users)
	return users
}

// Sessions returns a snapshot of every session entry, sorted by user id.
func (r *Registry) Sessions() []model.SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := lo.MapToSlice(r.sessions, func(_ string, s *session) model.SessionInfo {
		return model.SessionInfo{UserID: s.userID, Handles: len(s.handles), JoinedAt: s.joinedAt}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ConnectionCount returns the number of registered handles.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// SendToUser fans ev out to every handle of userID and returns how many
// handles accepted it. Sends happen outside the lock.
func (r *Registry) SendToUser(userID string, ev event.WsEvent) int {
	return sendAll(r.HandlesFor(userID), ev)
}

// Broadcast sends ev to every registered handle.
func (r *Registry) Broadcast(ev event.WsEvent) int {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.owners))
	for _, s := range r.sessions {
		conns = append(conns, lo.Values(s.handles)...)
	}
	r.mu.RUnlock()

	return sendAll(conns, ev)
}

func sendAll(conns []Conn, ev event.WsEvent) int {
	sent := 0
	for _, c := range conns {
		if c.Send(ev) {
			sent++
		}
	}
	return sent
}
