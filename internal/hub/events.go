package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"github.com/umachittudi2004/VedazAssingment/internal/presence"
	"github.com/umachittudi2004/VedazAssingment/internal/service"
	"go.uber.org/zap"
)

const (
	codeNotJoined    = "not_joined"
	codeUnknownEvent = "unknown_event"
)

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	if c.IsClosed() {
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, h.opts.HandlerTimeout)
	defer cancel()

	switch ev.Event {
	case event.EventJoin:
		h.handleJoin(ev, c)
	case event.EventSendMessage:
		h.handleSend(ctx, ev, c)
	case event.EventReadMessage:
		h.handleRead(ctx, ev, c)
	case event.EventTypingStart, event.EventTypingStop:
		h.handleTyping(ev, c)
	default:
		c.logger.Debug("unknown event type", zap.String("event", ev.Event))
		h.sendError(c, model.ErrorPayload{Code: codeUnknownEvent, Message: fmt.Sprintf("unknown event %q", ev.Event)})
	}
}

func (h *Hub) handleJoin(ev event.WsEvent, c *Client) {
	var userID string
	if err := ev.Decode(&userID); err != nil || userID == "" {
		h.sendFailure(c, errs.Validation("join payload must be a user id"), "")
		return
	}
	if c.authUserID != "" && c.authUserID != userID {
		h.sendFailure(c, fmt.Errorf("%w: token belongs to another user", errs.ErrUnauthorized), "")
		return
	}

	cameOnline, err := h.registry.Join(userID, c)
	if errors.Is(err, presence.ErrConnClosed) {
		return
	}
	if err != nil {
		h.sendFailure(c, err, "")
		return
	}
	c.logger.Info("client joined", zap.String("user_id", userID), zap.Bool("came_online", cameOnline))
}

// joined returns the user bound to c, or reports not_joined to the client.
func (h *Hub) joined(c *Client) (string, bool) {
	userID, ok := h.registry.OwnerOf(c)
	if !ok {
		h.sendError(c, model.ErrorPayload{Code: codeNotJoined, Message: "join before sending events"})
	}
	return userID, ok
}

func (h *Hub) handleSend(ctx context.Context, ev event.WsEvent, c *Client) {
	userID, ok := h.joined(c)
	if !ok {
		return
	}

	var payload model.SendMessagePayload
	if err := ev.Decode(&payload); err != nil {
		h.sendFailure(c, errs.Validation("malformed message:send payload"), "")
		return
	}
	if payload.SenderID != "" && payload.SenderID != userID {
		h.sendFailure(c, errs.Validation("sender %q does not match joined user", payload.SenderID), payload.ClientID)
		return
	}

	_, err := h.pipeline.Send(ctx, service.SendRequest{
		SenderID:   userID,
		ReceiverID: payload.ReceiverID,
		Text:       payload.Text,
		ClientID:   payload.ClientID,
	})
	if err != nil {
		h.sendFailure(c, err, payload.ClientID)
	}
}

func (h *Hub) handleRead(ctx context.Context, ev event.WsEvent, c *Client) {
	userID, ok := h.joined(c)
	if !ok {
		return
	}

	var messageID string
	if err := ev.Decode(&messageID); err != nil {
		h.sendFailure(c, errs.Validation("message:read payload must be a message id"), "")
		return
	}

	if err := h.receipts.MarkRead(ctx, userID, messageID); err != nil {
		h.sendFailure(c, err, "")
	}
}

func (h *Hub) handleTyping(ev event.WsEvent, c *Client) {
	userID, ok := h.joined(c)
	if !ok {
		return
	}

	var payload model.TypingIndicator
	if err := ev.Decode(&payload); err != nil {
		h.sendFailure(c, errs.Validation("malformed typing payload"), "")
		return
	}
	if payload.SenderID != "" && payload.SenderID != userID {
		h.sendFailure(c, errs.Validation("sender %q does not match joined user", payload.SenderID), "")
		return
	}

	var err error
	if ev.Event == event.EventTypingStart {
		_, err = h.typing.Start(userID, payload.ReceiverID)
	} else {
		_, err = h.typing.Stop(userID, payload.ReceiverID)
	}
	if err != nil {
		h.sendFailure(c, err, "")
	}
}

func (h *Hub) sendFailure(c *Client, err error, clientID string) {
	code := errs.Code(err)
	if code == "internal_error" || code == "persistence_failure" {
		c.logger.Error("event failed", zap.Error(err))
	}
	h.sendError(c, model.ErrorPayload{Code: code, Message: err.Error(), ClientID: clientID})
}

func (h *Hub) sendError(c *Client, payload model.ErrorPayload) {
	c.Send(event.MustNew(event.EventError, "", payload))
}
