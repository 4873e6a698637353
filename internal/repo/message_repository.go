package repo

import (
	"context"
	"errors"
	"time"

	"github.com/umachittudi2004/VedazAssingment/internal/db"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")

type messageRepository struct {
	messages *db.Collection[model.Message]
	logger   *zap.Logger
	now      func() time.Time
}

// NewMessageRepository returns the MongoDB backed MessageRepository.
func NewMessageRepository(messages *db.Collection[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		messages: messages,
		logger:   logger.Named("messages"),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// -----------------------------------------------------------------------------
// Create
// -----------------------------------------------------------------------------

func (m *messageRepository) Create(ctx context.Context, in NewMessage) (*model.Message, error) {
	if err := validateNewMessage(in); err != nil {
		return nil, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg := model.Message{
		ID:         primitive.NewObjectID().Hex(),
		ClientID:   in.ClientID,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Text:       in.Text,
		Status:     model.StatusSent,
		CreatedAt:  m.now(),
	}

	// The id is fixed before the first attempt, so a retried insert that
	// already landed fails with a duplicate key instead of duplicating.
	err := withRetry(ctx, func(ctx context.Context) error {
		err := m.messages.Create(ctx, msg)
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		m.logger.Error("failed to insert message",
			zap.String("sender_id", in.SenderID),
			zap.String("receiver_id", in.ReceiverID),
			zap.Error(err),
		)
		return nil, errs.Persistence("insert message", err)
	}

	m.logger.Debug("message inserted", zap.String("message_id", msg.ID))
	return &msg, nil
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (m *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.messages.FindByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Persistence("find message", err)
	}
	return msg, nil
}

func (m *messageRepository) FindConversation(ctx context.Context, userA, userB string) ([]model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.Between("sender_id", "receiver_id", userA, userB)
	msgs, err := m.messages.FindAll(ctx, filter, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if err != nil {
		m.logger.Error("failed to read conversation",
			zap.String("user_a", userA),
			zap.String("user_b", userB),
			zap.Error(err),
		)
		return nil, errs.Persistence("find conversation", err)
	}
	return msgs, nil
}

func (m *messageRepository) LastMessages(ctx context.Context, userID string) ([]model.ConversationPreview, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: db.Involving("sender_id", "receiver_id", userID)}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", userID}},
				"$receiver_id",
				"$sender_id",
			}},
			"last_message": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message.created_at", Value: -1}}}},
	}

	cursor, err := m.messages.Raw().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.Persistence("aggregate last messages", err)
	}
	defer cursor.Close(ctx)

	out := make([]model.ConversationPreview, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errs.Persistence("decode last messages", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// UpdateStatus
// -----------------------------------------------------------------------------

func (m *messageRepository) UpdateStatus(ctx context.Context, id string, status model.MessageStatus) (*model.Message, error) {
	if !status.Valid() {
		return nil, errs.Validation("unknown status %q", status)
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	// Only documents still in an earlier status match, so the update itself
	// enforces monotonicity.
	filter := db.NewFilter().
		Eq("_id", id).
		In("status", model.StatusesBefore(status)).
		Build()

	msg, err := m.messages.FindOneAndSet(ctx, filter, bson.M{"status": status})
	if err == nil {
		m.logger.Debug("message status updated",
			zap.String("message_id", id),
			zap.String("status", string(status)),
		)
		return msg, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		m.logger.Error("failed to update message status",
			zap.String("message_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, errs.Persistence("update message status", err)
	}

	current, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, checkTransition(current.Status, status)
}
