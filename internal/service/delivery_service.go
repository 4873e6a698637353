package service

import (
	"context"
	"errors"
	"strings"

	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"github.com/umachittudi2004/VedazAssingment/internal/repo"
	"go.uber.org/zap"
)

// SendRequest is a validated message:send.
type SendRequest struct {
	SenderID   string `validate:"required,max=128"`
	ReceiverID string `validate:"required,max=128"`
	Text       string `validate:"required,max=4096"`
	ClientID   string `validate:"omitempty,max=128"`
}

// SendResult is the outcome of one send.
type SendResult struct {
	// Message carries the status that was notified to the clients.
	Message   *model.Message
	Delivered bool
}

// DeliveryPipeline persists a message, fans it out to the receiver when
// online and echoes it to every device of the sender.
type DeliveryPipeline struct {
	messages  repo.MessageRepository
	directory Directory
	logger    *zap.Logger
}

func NewDeliveryPipeline(messages repo.MessageRepository, directory Directory, logger *zap.Logger) *DeliveryPipeline {
	return &DeliveryPipeline{
		messages:  messages,
		directory: directory,
		logger:    logger.Named("delivery"),
	}
}

// Send runs the delivery steps for req. Nothing is emitted when validation
// or the initial write fails.
func (p *DeliveryPipeline) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(req); err != nil {
		return nil, errs.Validation("%v", err)
	}

	msg, err := p.messages.Create(ctx, repo.NewMessage{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Text:       req.Text,
		ClientID:   req.ClientID,
	})
	if err != nil {
		p.logger.Error("failed to persist message",
			zap.String("sender", req.SenderID),
			zap.String("receiver", req.ReceiverID),
			zap.Error(err))
		return nil, err
	}

	result := &SendResult{Message: msg}

	if p.directory.IsOnline(msg.ReceiverID) {
		delivered := *msg
		delivered.Status = model.StatusDelivered

		if n := p.directory.SendToUser(msg.ReceiverID, event.MustNew(event.EventNewMessage, msg.ReceiverID, delivered)); n > 0 {
			result.Delivered = true
			msg.Status = model.StatusDelivered
			p.recordDelivered(ctx, msg.ID)
		}
	}

	p.directory.SendToUser(msg.SenderID, event.MustNew(event.EventNewMessage, msg.SenderID, *msg))

	if result.Delivered {
		update := model.MessageStatusUpdate{MessageID: msg.ID, Status: model.StatusDelivered}
		p.directory.SendToUser(msg.SenderID, event.MustNew(event.EventMessageStatus, msg.SenderID, update))
	}

	return result, nil
}

// recordDelivered persists the delivered status. The receiver has already
// been notified, so a failure here is logged and the stored status lags.
func (p *DeliveryPipeline) recordDelivered(ctx context.Context, id string) {
	_, err := p.messages.UpdateStatus(ctx, id, model.StatusDelivered)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrStatusUnchanged), errors.Is(err, errs.ErrStatusRegression):
		// already delivered or read by a fast receiver
	default:
		p.logger.Warn("failed to record delivered status",
			zap.String("message_id", id),
			zap.Error(err))
	}
}
