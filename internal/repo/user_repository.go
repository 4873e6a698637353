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
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type userRepository struct {
	users  *db.Collection[model.User]
	logger *zap.Logger
}

// NewUserRepository returns the MongoDB backed UserRepository.
func NewUserRepository(users *db.Collection[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		users:  users,
		logger: logger.Named("users"),
	}
}

// EnsureUserIndexes creates the unique username index.
func EnsureUserIndexes(ctx context.Context, users *db.Collection[model.User]) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := users.Raw().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *userRepository) CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	user := model.User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := r.users.Create(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errs.ErrConflict
		}
		r.logger.Error("failed to insert user", zap.String("username", username), zap.Error(err))
		return nil, errs.Persistence("insert user", err)
	}
	return &user, nil
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.users.FindOne(ctx, filter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Persistence("find user", err)
	}
	return user, nil
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, db.NewFilter().Eq("_id", id).Build())
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, db.NewFilter().Eq("username", username).Build())
}

func (r *userRepository) ListUsers(ctx context.Context, excludeID string) ([]model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	users, err := r.users.FindAll(ctx, db.NewFilter().Ne("_id", excludeID).Build(), bson.D{{Key: "username", Value: 1}})
	if err != nil {
		return nil, errs.Persistence("list users", err)
	}
	return users, nil
}

func (r *userRepository) SetOnline(ctx context.Context, id string, online bool) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.users.UpdateByID(ctx, id, bson.M{"online": online})
	if err != nil {
		return errs.Persistence("update online flag", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}
