package event

import (
	"encoding/json"
	"fmt"
)

// Client to server
const (
	EventJoin        = "join"
	EventSendMessage = "message:send"
	EventReadMessage = "message:read"
	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"
)

// Server to client
const (
	EventNewMessage    = "message:new"
	EventMessageStatus = "message:status"
	EventMessageRead   = "message:read"
	EventUserOnline    = "user:online"
	EventUserOffline   = "user:offline"
	EventError         = "error"
)

// WsEvent is the envelope of every frame exchanged over the socket.
// ChannelId carries the addressed user id on server to client events.
type WsEvent struct {
	Event     string          `json:"event"`
	ChannelId string          `json:"channelId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// New marshals payload into an event envelope.
func New(name string, channelId string, payload any) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return WsEvent{Event: name, ChannelId: channelId, Payload: raw}, nil
}

// MustNew is New for payloads that cannot fail to marshal (strings, plain structs).
func MustNew(name string, channelId string, payload any) WsEvent {
	ev, err := New(name, channelId, payload)
	if err != nil {
		panic(err)
	}
	return ev
}

// Decode unmarshals the payload into v.
func (e WsEvent) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.Event)
	}
	return json.Unmarshal(e.Payload, v)
}
