package service

import (
	"context"
	"errors"
	"time"

	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"github.com/umachittudi2004/VedazAssingment/internal/repo"
	"go.uber.org/zap"
)

// ReceiptCoordinator applies read receipts and tells both participants.
type ReceiptCoordinator struct {
	messages  repo.MessageRepository
	directory Directory
	logger    *zap.Logger
	now       func() time.Time
}

func NewReceiptCoordinator(messages repo.MessageRepository, directory Directory, logger *zap.Logger) *ReceiptCoordinator {
	return &ReceiptCoordinator{
		messages:  messages,
		directory: directory,
		logger:    logger.Named("receipts"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// MarkRead marks messageID as read on behalf of readerID. Only the receiver
// of a message may read it. Marking an already read message is a no-op and
// emits nothing.
func (rc *ReceiptCoordinator) MarkRead(ctx context.Context, readerID, messageID string) error {
	if messageID == "" {
		return errs.Validation("message id is required")
	}

	msg, err := rc.messages.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if readerID != "" && msg.ReceiverID != readerID {
		return errs.Validation("only the receiver can mark message %s read", messageID)
	}

	if _, err := rc.messages.UpdateStatus(ctx, messageID, model.StatusRead); err != nil {
		if errors.Is(err, errs.ErrStatusUnchanged) {
			return nil
		}
		rc.logger.Error("failed to mark message read",
			zap.String("message_id", messageID),
			zap.Error(err))
		return err
	}

	seen := model.MessageSeen{
		MessageID: msg.ID,
		SeenBy:    msg.ReceiverID,
		SeenAt:    rc.now().Format(time.RFC3339Nano),
	}
	for _, userID := range msg.Participants() {
		rc.directory.SendToUser(userID, event.MustNew(event.EventMessageRead, userID, seen))
	}
	return nil
}
