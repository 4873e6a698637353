package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
)

// MemoryStore keeps messages and users in process memory. It backs the
// "memory" store driver and the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]*model.Message
	order    []string
	users    map[string]*model.User
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string]*model.Message),
		users:    make(map[string]*model.User),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, in NewMessage) (*model.Message, error) {
	if err := validateNewMessage(in); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:         uuid.NewString(),
		ClientID:   in.ClientID,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Text:       in.Text,
		Status:     model.StatusSent,
		CreatedAt:  s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = msg
	s.order = append(s.order, msg.ID)

	out := *msg
	return &out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := *msg
	return &out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status model.MessageStatus) (*model.Message, error) {
	if !status.Valid() {
		return nil, errs.Validation("unknown status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if err := checkTransition(msg.Status, status); err != nil {
		out := *msg
		return &out, err
	}
	msg.Status = status

	out := *msg
	return &out, nil
}

func (s *MemoryStore) FindConversation(_ context.Context, userA, userB string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, 0)
	for _, id := range s.order {
		if msg := s.messages[id]; msg.Between(userA, userB) {
			out = append(out, *msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) LastMessages(_ context.Context, userID string) ([]model.ConversationPreview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	involved := make([]model.Message, 0)
	for _, id := range s.order {
		if msg := s.messages[id]; msg.SenderID == userID || msg.ReceiverID == userID {
			involved = append(involved, *msg)
		}
	}
	return latestPerPartner(userID, involved), nil
}

// latestPerPartner expects msgs in ascending creation order.
func latestPerPartner(userID string, msgs []model.Message) []model.ConversationPreview {
	latest := make(map[string]model.Message)
	for _, msg := range msgs {
		partner := msg.ReceiverID
		if msg.ReceiverID == userID {
			partner = msg.SenderID
		}
		if prev, ok := latest[partner]; !ok || !msg.CreatedAt.Before(prev.CreatedAt) {
			latest[partner] = msg
		}
	}

	out := make([]model.ConversationPreview, 0, len(latest))
	for partner, msg := range latest {
		out = append(out, model.ConversationPreview{PartnerID: partner, LastMessage: msg})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out
}

func (s *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, errs.ErrConflict
		}
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.users[user.ID] = user

	out := *user
	return &out, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, excludeID string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.users))
	for id, u := range s.users {
		if id != excludeID {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *MemoryStore) SetOnline(_ context.Context, id string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.Online = online
	return nil
}
