//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks
package repo

import (
	"context"
	"strings"

	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
)

// NewMessage is the input of MessageRepository.Create.
type NewMessage struct {
	SenderID   string
	ReceiverID string
	Text       string
	ClientID   string
}

// MessageRepository is the durable owner of message records.
type MessageRepository interface {
	// Create stores a new message with status sent.
	Create(ctx context.Context, msg NewMessage) (*model.Message, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// UpdateStatus moves a message forward along sent < delivered < read.
	// It fails with errs.ErrNotFound for unknown ids, errs.ErrStatusRegression
	// for backward moves and errs.ErrStatusUnchanged when the status is
	// already the requested one; the last two also return the stored record.
	UpdateStatus(ctx context.Context, id string, status model.MessageStatus) (*model.Message, error)
	// FindConversation returns the messages between a and b, oldest first.
	FindConversation(ctx context.Context, userA, userB string) ([]model.Message, error)
	// LastMessages returns the newest message per conversation partner, newest first.
	LastMessages(ctx context.Context, userID string) ([]model.ConversationPreview, error)
}

// UserRepository stores accounts and their projected online flag.
type UserRepository interface {
	// CreateUser fails with errs.ErrConflict when the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// ListUsers returns every user except excludeID, ordered by username.
	ListUsers(ctx context.Context, excludeID string) ([]model.User, error)
	SetOnline(ctx context.Context, id string, online bool) error
}

func validateNewMessage(msg NewMessage) error {
	if msg.SenderID == "" || msg.ReceiverID == "" {
		return errs.Validation("sender and receiver are required")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return errs.Validation("message text is empty")
	}
	return nil
}

// checkTransition validates moving current to next.
func checkTransition(current, next model.MessageStatus) error {
	switch {
	case current == next:
		return errs.ErrStatusUnchanged
	case next.Before(current):
		return errs.ErrStatusRegression
	default:
		return nil
	}
}
