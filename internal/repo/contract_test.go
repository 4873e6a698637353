package repo

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/umachittudi2004/VedazAssingment/internal/db"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"go.uber.org/zap"
)

type store interface {
	MessageRepository
	UserRepository
}

func backends(t *testing.T) map[string]func(t *testing.T) store {
	return map[string]func(t *testing.T) store{
		"memory": func(t *testing.T) store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) store {
			conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "chat.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = conn.Close() })
			return NewSQLiteStore(conn, zap.NewNop())
		},
	}
}

func TestMessageRepository_Contract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("create stores a sent message", func(t *testing.T) {
				req := require.New(t)
				s := open(t)
				ctx := context.Background()

				msg, err := s.Create(ctx, NewMessage{SenderID: "alice", ReceiverID: "bob", Text: "hi", ClientID: "c-1"})

				req.NoError(err)
				req.NotEmpty(msg.ID)
				req.Equal(model.StatusSent, msg.Status)
				req.Equal("c-1", msg.ClientID)

				found, err := s.FindByID(ctx, msg.ID)
				req.NoError(err)
				req.Equal(msg.ID, found.ID)
				req.Equal("hi", found.Text)
				req.WithinDuration(msg.CreatedAt, found.CreatedAt, time.Millisecond)
			})

			t.Run("create rejects blank text", func(t *testing.T) {
				req := require.New(t)
				s := open(t)

				_, err := s.Create(context.Background(), NewMessage{SenderID: "alice", ReceiverID: "bob", Text: "  \t"})

				req.ErrorIs(err, errs.ErrValidation)
			})

			t.Run("status only moves forward", func(t *testing.T) {
				req := require.New(t)
				s := open(t)
				ctx := context.Background()
				msg, err := s.Create(ctx, NewMessage{SenderID: "alice", ReceiverID: "bob", Text: "hi"})
				req.NoError(err)

				delivered, err := s.UpdateStatus(ctx, msg.ID, model.StatusDelivered)
				req.NoError(err)
				req.Equal(model.StatusDelivered, delivered.Status)

				read, err := s.UpdateStatus(ctx, msg.ID, model.StatusRead)
				req.NoError(err)
				req.Equal(model.StatusRead, read.Status)

				// Backward moves are rejected and leave the record intact
				current, err := s.UpdateStatus(ctx, msg.ID, model.StatusDelivered)
				req.ErrorIs(err, errs.ErrStatusRegression)
				req.Equal(model.StatusRead, current.Status)

				current, err = s.UpdateStatus(ctx, msg.ID, model.StatusRead)
				req.ErrorIs(err, errs.ErrStatusUnchanged)
				req.Equal(model.StatusRead, current.Status)
			})

			t.Run("sent can jump straight to read", func(t *testing.T) {
				req := require.New(t)
				s := open(t)
				ctx := context.Background()
				msg, err := s.Create(ctx, NewMessage{SenderID: "alice", ReceiverID: "bob", Text: "hi"})
				req.NoError(err)

				read, err := s.UpdateStatus(ctx, msg.ID, model.StatusRead)

				req.NoError(err)
				req.Equal(model.StatusRead, read.Status)
			})

			t.Run("unknown id is not found", func(t *testing.T) {
				req := require.New(t)
				s := open(t)

				_, err := s.UpdateStatus(context.Background(), "missing", model.StatusRead)
				req.ErrorIs(err, errs.ErrNotFound)

				_, err = s.FindByID(context.Background(), "missing")
				req.ErrorIs(err, errs.ErrNotFound)
			})

			t.Run("concurrent updates never regress", func(t *testing.T) {
				req := require.New(t)
				s := open(t)
				ctx := context.Background()
				msg, err := s.Create(ctx, NewMessage{SenderID: "alice", ReceiverID: "bob", Text: "hi"})
				req.NoError(err)

				var wg sync.WaitGroup
				for i := 0; i < 10; i++ {
					wg.Add(2)
					go func() {
						defer wg.Done()
						_, _ = s.UpdateStatus(ctx, msg.ID, model.StatusDelivered)
					}()
					go func() {
						defer wg.Done()
						_, _ = s.UpdateStatus(ctx, msg.ID, model.StatusRead)
					}()
				}
				wg.Wait()

				final, err := s.FindByID(ctx, msg.ID)
				req.NoError(err)
				req.Equal(model.StatusRead, final.Status)
			})

			t.Run("conversation is ordered and scoped to the pair", func(t *testing.T) {
				req := require.New(t)
				s := open(t)
				ctx := context.Background()

				for _, in := range []NewMessage{
					{SenderID: "alice", ReceiverID: "bob", Text: "one"},
					{SenderID: "bob", ReceiverID: "alice", Text: "two"},
					{SenderID: "alice", ReceiverID: "carol", Text: "elsewhere"},
					{SenderID: "alice", ReceiverID: "bob", Text: "three"},
				} {
					_, err := s.Create(ctx, in)
					req.NoError(err)
				}

				msgs, err := s.FindConversation(ctx, "bob", "alice")
				req.NoError(err)
				req.Len(msgs, 3)
				req.Equal("one", msgs[0].Text)
				req.Equal("two", msgs[1].Text)
				req.Equal("three", msgs[2].Text)

				empty, err := s.FindConversation(ctx, "bob", "carol")
				req.NoError(err)
				req.Empty(empty)
			})

			t.Run("last message per partner", func(t *testing.T) {
				req := require.New(t)
				s := open(t)
				ctx := context.Background()

				for _, in := range []NewMessage{
					{SenderID: "alice", ReceiverID: "bob", Text: "bob old"},
					{SenderID: "carol", ReceiverID: "alice", Text: "carol latest"},
					{SenderID: "bob", ReceiverID: "alice", Text: "bob latest"},
					{SenderID: "bob", ReceiverID: "carol", Text: "not mine"},
				} {
					_, err := s.Create(ctx, in)
					req.NoError(err)
					time.Sleep(time.Millisecond)
				}

				previews, err := s.LastMessages(ctx, "alice")
				req.NoError(err)
				req.Len(previews, 2)
				req.Equal("bob", previews[0].PartnerID)
				req.Equal("bob latest", previews[0].LastMessage.Text)
				req.Equal("carol", previews[1].PartnerID)
				req.Equal("carol latest", previews[1].LastMessage.Text)
			})
		})
	}
}

func TestUserRepository_Contract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			s := open(t)
			ctx := context.Background()

			// Given two registered users
			alice, err := s.CreateUser(ctx, "alice", "hash-a")
			req.NoError(err)
			bob, err := s.CreateUser(ctx, "bob", "hash-b")
			req.NoError(err)
			req.False(alice.Online)

			// Usernames are unique
			_, err = s.CreateUser(ctx, "alice", "other")
			req.ErrorIs(err, errs.ErrConflict)

			found, err := s.FindByUsername(ctx, "bob")
			req.NoError(err)
			req.Equal(bob.ID, found.ID)
			req.Equal("hash-b", found.PasswordHash)

			_, err = s.FindByUsername(ctx, "nobody")
			req.ErrorIs(err, errs.ErrNotFound)

			// The online flag round trips
			req.NoError(s.SetOnline(ctx, alice.ID, true))
			got, err := s.GetUser(ctx, alice.ID)
			req.NoError(err)
			req.True(got.Online)
			req.ErrorIs(s.SetOnline(ctx, "missing", true), errs.ErrNotFound)

			// The list excludes the caller
			others, err := s.ListUsers(ctx, alice.ID)
			req.NoError(err)
			req.Len(others, 1)
			req.Equal("bob", others[0].Username)
		})
	}
}
