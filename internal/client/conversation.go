// Package client is the Go side of a chat participant: it keeps the open
// conversation consistent with optimistic sends, server confirmations and
// out-of-order status updates, and drives the websocket session.
package client

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
)

const (
	tempIDPrefix = "tmp-"

	// maxEarlyStatuses bounds the statuses kept for ids not seen yet.
	maxEarlyStatuses = 256
)

// IsTemporaryID reports whether id belongs to a local placeholder.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// ReconcileOutcome tells what Reconcile did with a confirmation.
type ReconcileOutcome int

const (
	Duplicate ReconcileOutcome = iota
	Replaced
	Appended
)

// Conversation is the ordered message list of one open chat.
type Conversation struct {
	mu       sync.Mutex
	selfID   string
	peerID   string
	messages []model.Message
	early    map[string]model.MessageStatus
	now      func() time.Time
}

func NewConversation(selfID, peerID string) *Conversation {
	return &Conversation{
		selfID: selfID,
		peerID: peerID,
		early:  make(map[string]model.MessageStatus),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (c *Conversation) PeerID() string { return c.peerID }

// Belongs reports whether msg is part of this conversation.
func (c *Conversation) Belongs(msg model.Message) bool {
	return msg.Between(c.selfID, c.peerID)
}

// AppendOptimistic appends msg as a placeholder and returns it. The
// placeholder gets a temporary id, a correlation id when msg has none,
// status sent and the local time.
func (c *Conversation) AppendOptimistic(msg model.Message) model.Message {
	msg.ID = tempIDPrefix + uuid.NewString()
	if msg.ClientID == "" {
		msg.ClientID = uuid.NewString()
	}
	msg.Status = model.StatusSent
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return msg
}

// Reconcile merges a server confirmed message. A known id is ignored. A
// placeholder with the same correlation id is replaced in place; without a
// correlation id the first sent placeholder with the same text, sender and
// receiver is replaced. Anything else is appended.
func (c *Conversation) Reconcile(confirmed model.Message) ReconcileOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexLocked(confirmed.ID) >= 0 {
		return Duplicate
	}

	if early, ok := c.early[confirmed.ID]; ok {
		delete(c.early, confirmed.ID)
		if confirmed.Status.Before(early) {
			confirmed.Status = early
		}
	}

	if i := c.placeholderLocked(confirmed); i >= 0 {
		c.messages[i] = confirmed
		return Replaced
	}

	c.messages = append(c.messages, confirmed)
	return Appended
}

func (c *Conversation) placeholderLocked(confirmed model.Message) int {
	if confirmed.ClientID != "" {
		for i, m := range c.messages {
			if IsTemporaryID(m.ID) && m.ClientID == confirmed.ClientID {
				return i
			}
		}
		return -1
	}

	for i, m := range c.messages {
		if IsTemporaryID(m.ID) &&
			m.Status == model.StatusSent &&
			m.Text == confirmed.Text &&
			m.SenderID == confirmed.SenderID &&
			m.ReceiverID == confirmed.ReceiverID {
			return i
		}
	}
	return -1
}

func (c *Conversation) indexLocked(id string) int {
	for i, m := range c.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// ApplyStatus moves the message forward to status and reports whether
// anything changed. Backward moves are ignored. A status for an unknown id
// changes nothing now; it is remembered and applied if that id is
// reconciled later, since a receipt can overtake the echo of a send.
func (c *Conversation) ApplyStatus(id string, status model.MessageStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		c.rememberLocked(id, status)
		return false
	}
	if !c.messages[i].Status.Before(status) {
		return false
	}
	c.messages[i].Status = status
	return true
}

func (c *Conversation) rememberLocked(id string, status model.MessageStatus) {
	if prev, ok := c.early[id]; ok && !prev.Before(status) {
		return
	}
	if len(c.early) >= maxEarlyStatuses {
		clear(c.early)
	}
	c.early[id] = status
}

// Discard drops the placeholder with the given correlation id, used when
// the server rejected the send.
func (c *Conversation) Discard(clientID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, m := range c.messages {
		if IsTemporaryID(m.ID) && m.ClientID == clientID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Load merges fetched history into the conversation.
func (c *Conversation) Load(history []model.Message) {
	for _, msg := range history {
		if c.Belongs(msg) {
			c.Reconcile(msg)
		}
	}
}

// Messages returns a copy of the current list.
func (c *Conversation) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Message(nil), c.messages...)
}

// Unread returns the ids of messages addressed to self that are not read.
func (c *Conversation) Unread() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for _, m := range c.messages {
		if m.ReceiverID == c.selfID && m.Status != model.StatusRead && !IsTemporaryID(m.ID) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
