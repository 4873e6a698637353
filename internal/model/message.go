package model

import (
	"fmt"
	"time"
)

// MessageStatus is the delivery state of a direct message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

var statusRank = map[MessageStatus]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Rank returns the position of the status along sent < delivered < read,
// or 0 for an unknown status.
func (s MessageStatus) Rank() int {
	return statusRank[s]
}

func (s MessageStatus) Valid() bool {
	return s.Rank() > 0
}

// Before reports whether s comes strictly before other.
func (s MessageStatus) Before(other MessageStatus) bool {
	return s.Rank() < other.Rank()
}

// StatusesBefore lists the statuses that may legally transition to s.
func StatusesBefore(s MessageStatus) []MessageStatus {
	out := make([]MessageStatus, 0, 2)
	for _, candidate := range []MessageStatus{StatusSent, StatusDelivered, StatusRead} {
		if candidate.Before(s) {
			out = append(out, candidate)
		}
	}
	return out
}

// StatusFromRank is the inverse of Rank.
func StatusFromRank(rank int) (MessageStatus, error) {
	for status, r := range statusRank {
		if r == rank {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status rank %d", rank)
}

// Message represents a direct message between two users
type Message struct {
	ID         string        `json:"id" bson:"_id"`
	ClientID   string        `json:"clientId,omitempty" bson:"client_id,omitempty"`
	SenderID   string        `json:"sender" bson:"sender_id"`
	ReceiverID string        `json:"receiver" bson:"receiver_id"`
	Text       string        `json:"text" bson:"text"`
	Status     MessageStatus `json:"status" bson:"status"`
	CreatedAt  time.Time     `json:"createdAt" bson:"created_at"`
}

// Participants returns the two users of the message's conversation.
func (m Message) Participants() []string {
	if m.SenderID == m.ReceiverID {
		return []string{m.SenderID}
	}
	return []string{m.SenderID, m.ReceiverID}
}

// Between reports whether the message belongs to the conversation of a and b.
func (m Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// ClientID echoes the correlation id of a rejected message:send.
	ClientID string `json:"clientId,omitempty"`
}
