package service

import (
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
)

// TypingRelay forwards typing signals to the receiver's handles. Nothing
// is stored and offline receivers are skipped.
type TypingRelay struct {
	directory Directory
}

func NewTypingRelay(directory Directory) *TypingRelay {
	return &TypingRelay{directory: directory}
}

// Start relays typing:start from sender to receiver and returns the number
// of handles reached.
func (t *TypingRelay) Start(senderID, receiverID string) (int, error) {
	return t.relay(event.EventTypingStart, senderID, receiverID)
}

// Stop relays typing:stop.
func (t *TypingRelay) Stop(senderID, receiverID string) (int, error) {
	return t.relay(event.EventTypingStop, senderID, receiverID)
}

func (t *TypingRelay) relay(name, senderID, receiverID string) (int, error) {
	if senderID == "" || receiverID == "" {
		return 0, errs.Validation("sender and receiver are required")
	}
	return t.directory.SendToUser(receiverID, event.MustNew(name, receiverID, senderID)), nil
}
