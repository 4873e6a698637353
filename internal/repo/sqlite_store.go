package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"go.uber.org/zap"
)

const messageColumns = `id, client_id, sender_id, receiver_id, text, status_rank, created_at`

// SQLiteStore implements MessageRepository and UserRepository on an
// embedded SQLite database opened with db.OpenSQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewSQLiteStore(conn *sql.DB, logger *zap.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     conn,
		logger: logger.Named("sqlite"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		msg       model.Message
		rank      int
		createdAt int64
	)
	if err := row.Scan(&msg.ID, &msg.ClientID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &rank, &createdAt); err != nil {
		return nil, err
	}
	status, err := model.StatusFromRank(rank)
	if err != nil {
		return nil, err
	}
	msg.Status = status
	msg.CreatedAt = time.Unix(0, createdAt).UTC()
	return &msg, nil
}

func (s *SQLiteStore) Create(ctx context.Context, in NewMessage) (*model.Message, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ClientID, msg.SenderID, msg.ReceiverID, msg.Text, msg.Status.Rank(), msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		s.logger.Error("failed to insert message", zap.String("sender_id", in.SenderID), zap.Error(err))
		return nil, errs.Persistence("insert message", err)
	}
	return msg, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*model.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Persistence("find message", err)
	}
	return msg, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status model.MessageStatus) (*model.Message, error) {
	if !status.Valid() {
		return nil, errs.Validation("unknown status %q", status)
	}

	// The rank guard makes the transition atomic: concurrent writers can
	// never move a message backward.
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET status_rank = ? WHERE id = ? AND status_rank < ?`,
		status.Rank(), id, status.Rank(),
	)
	if err != nil {
		return nil, errs.Persistence("update message status", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errs.Persistence("update message status", err)
	}

	msg, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return msg, checkTransition(msg.Status, status)
	}
	return msg, nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Persistence("query messages", err)
	}
	defer rows.Close()

	out := make([]model.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, errs.Persistence("scan message", err)
		}
		out = append(out, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence("query messages", err)
	}
	return out, nil
}

func (s *SQLiteStore) FindConversation(ctx context.Context, userA, userB string) ([]model.Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		 ORDER BY created_at, seq`,
		userA, userB, userB, userA,
	)
}

func (s *SQLiteStore) LastMessages(ctx context.Context, userID string) ([]model.ConversationPreview, error) {
	msgs, err := s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE sender_id = ? OR receiver_id = ?
		 ORDER BY created_at, seq`,
		userID, userID,
	)
	if err != nil {
		return nil, err
	}
	return latestPerPartner(userID, msgs), nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		online    int
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &online, &createdAt); err != nil {
		return nil, err
	}
	u.Online = online == 1
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return &u, nil
}

const userColumns = `id, username, password_hash, online, created_at`

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error) {
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, 0, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, errs.ErrConflict
		}
		return nil, errs.Persistence("insert user", err)
	}
	return u, nil
}

func (s *SQLiteStore) findUser(ctx context.Context, where string, arg string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Persistence("find user", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *SQLiteStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, "username", username)
}

func (s *SQLiteStore) ListUsers(ctx context.Context, excludeID string) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id != ? ORDER BY username`, excludeID)
	if err != nil {
		return nil, errs.Persistence("list users", err)
	}
	defer rows.Close()

	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errs.Persistence("scan user", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence("list users", err)
	}
	return out, nil
}

func (s *SQLiteStore) SetOnline(ctx context.Context, id string, online bool) error {
	flag := 0
	if online {
		flag = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET online = ? WHERE id = ?`, flag, id)
	if err != nil {
		return errs.Persistence("update online flag", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
