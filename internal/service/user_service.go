package service

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"
	"github.com/umachittudi2004/VedazAssingment/internal/auth"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"github.com/umachittudi2004/VedazAssingment/internal/repo"
	"go.uber.org/zap"
)

// Credentials is the body of register and login.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string            `json:"token"`
	User  model.UserSummary `json:"user"`
}

// UserService covers accounts, the user list and conversation history.
type UserService interface {
	Register(ctx context.Context, creds Credentials) (*AuthResult, error)
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	// ListUsers returns everyone except callerID with live online flags.
	ListUsers(ctx context.Context, callerID string) ([]model.UserSummary, error)
	Conversation(ctx context.Context, callerID, peerID string) ([]model.Message, error)
	LastMessages(ctx context.Context, callerID string) ([]model.ConversationPreview, error)
}

type userService struct {
	repo        repo.UserRepository
	messageRepo repo.MessageRepository
	directory   Directory
	tokens      *auth.TokenManager
	logger      *zap.Logger
}

func NewUserService(
	repo repo.UserRepository,
	messageRepo repo.MessageRepository,
	directory Directory,
	tokens *auth.TokenManager,
	logger *zap.Logger,
) UserService {
	return &userService{
		repo:        repo,
		messageRepo: messageRepo,
		directory:   directory,
		tokens:      tokens,
		logger:      logger.Named("users"),
	}
}

func (s *userService) Register(ctx context.Context, creds Credentials) (*AuthResult, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := validate.Struct(creds); err != nil {
		return nil, errs.Validation("%v", err)
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, creds.Username, hash)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

func (s *userService) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return nil, errs.Validation("username and password are required")
	}

	user, err := s.repo.FindByUsername(ctx, creds.Username)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, creds.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrUnauthorized
	}
	return s.issue(user)
}

func (s *userService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: s.summary(*user)}, nil
}

func (s *userService) ListUsers(ctx context.Context, callerID string) ([]model.UserSummary, error) {
	users, err := s.repo.ListUsers(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u model.User, _ int) model.UserSummary {
		return s.summary(u)
	}), nil
}

// summary prefers the registry over the stored flag, which is only a
// projection and may lag.
func (s *userService) summary(u model.User) model.UserSummary {
	return model.UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Online:   s.directory.IsOnline(u.ID),
	}
}

func (s *userService) Conversation(ctx context.Context, callerID, peerID string) ([]model.Message, error) {
	if callerID == "" || peerID == "" {
		return nil, errs.Validation("both participants are required")
	}
	return s.messageRepo.FindConversation(ctx, callerID, peerID)
}

func (s *userService) LastMessages(ctx context.Context, callerID string) ([]model.ConversationPreview, error) {
	return s.messageRepo.LastMessages(ctx, callerID)
}
