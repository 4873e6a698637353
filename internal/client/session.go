package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	// maxBacklog bounds the events kept while no conversation is open.
	maxBacklog = 256
)

type statusUpdate struct {
	id     string
	status model.MessageStatus
}

// Handlers are optional callbacks run on the session's read goroutine.
type Handlers struct {
	// OnMessage gets the message:new events of the open conversation after
	// they were merged into it.
	OnMessage  func(msg model.Message, outcome ReconcileOutcome)
	OnStatus   func(messageID string, status model.MessageStatus)
	OnPresence func(userID string, online bool)
	OnTyping   func(userID string, typing bool)
	OnError    func(payload model.ErrorPayload)
}

// Session is one joined websocket connection of a user.
type Session struct {
	userID   string
	conn     *websocket.Conn
	handlers Handlers
	logger   *zap.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	presence map[string]bool
	open     *Conversation
	typist   *Typist

	// Events received before the first Open, replayed into it.
	backlog  []model.Message
	statuses []statusUpdate

	done chan struct{}
	err  error
}

// Dial connects to socketURL with token, joins as userID and starts reading.
func Dial(ctx context.Context, socketURL, token, userID string, handlers Handlers, logger *zap.Logger) (*Session, error) {
	u, err := url.Parse(socketURL)
	if err != nil {
		return nil, fmt.Errorf("invalid socket url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketURL, err)
	}

	s := &Session{
		userID:   userID,
		conn:     conn,
		handlers: handlers,
		logger:   logger.Named("session").With(zap.String("user_id", userID)),
		presence: make(map[string]bool),
		done:     make(chan struct{}),
	}

	if err := s.emit(event.EventJoin, userID); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

func (s *Session) UserID() string { return s.userID }

// Done is closed when the connection ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the read error that ended the session, if any.
func (s *Session) Err() error {
	<-s.done
	return s.err
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.typist != nil {
		s.typist.Cancel()
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	s.writeMu.Unlock()
	return s.conn.Close()
}

func (s *Session) emit(name string, payload any) error {
	ev, err := event.New(name, "", payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Open makes peerID the open conversation, merges history and anything
// received before the first Open into it, and marks every unread message
// addressed to the user as read.
func (s *Session) Open(peerID string, history []model.Message) *Conversation {
	conv := NewConversation(s.userID, peerID)
	conv.Load(history)

	typist := NewTypist(TypingQuietPeriod,
		func() { s.emitTyping(event.EventTypingStart, peerID) },
		func() { s.emitTyping(event.EventTypingStop, peerID) },
	)

	s.mu.Lock()
	if s.typist != nil {
		s.typist.Cancel()
	}
	s.open = conv
	s.typist = typist
	backlog, statuses := s.backlog, s.statuses
	s.backlog, s.statuses = nil, nil
	s.mu.Unlock()

	conv.Load(backlog)
	for _, u := range statuses {
		conv.ApplyStatus(u.id, u.status)
	}

	for _, id := range conv.Unread() {
		s.markRead(id)
	}
	return conv
}

// Conversation returns the open conversation or nil.
func (s *Session) Conversation() *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// IsOnline reports the last presence event seen for userID.
func (s *Session) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presence[userID]
}

// SetOnline seeds presence, typically from the REST user list.
func (s *Session) SetOnline(userID string, online bool) {
	s.mu.Lock()
	s.presence[userID] = online
	s.mu.Unlock()
}

// Keystroke feeds the typing debouncer of the open conversation.
func (s *Session) Keystroke() {
	s.mu.RLock()
	typist := s.typist
	s.mu.RUnlock()
	if typist != nil {
		typist.Keystroke()
	}
}

// Send appends an optimistic placeholder to the open conversation and emits
// message:send without waiting for the server.
func (s *Session) Send(text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, errs.Validation("message text is empty")
	}

	s.mu.RLock()
	conv, typist := s.open, s.typist
	s.mu.RUnlock()
	if conv == nil {
		return model.Message{}, errs.Validation("no open conversation")
	}

	placeholder := conv.AppendOptimistic(model.Message{
		SenderID:   s.userID,
		ReceiverID: conv.PeerID(),
		Text:       text,
	})
	typist.Sent()

	err := s.emit(event.EventSendMessage, model.SendMessagePayload{
		SenderID:   s.userID,
		ReceiverID: conv.PeerID(),
		Text:       text,
		ClientID:   placeholder.ClientID,
	})
	if err != nil {
		conv.Discard(placeholder.ClientID)
		return model.Message{}, err
	}
	return placeholder, nil
}

func (s *Session) emitTyping(name, peerID string) {
	if err := s.emit(name, model.TypingIndicator{SenderID: s.userID, ReceiverID: peerID}); err != nil {
		s.logger.Debug("typing signal not sent", zap.Error(err))
	}
}

func (s *Session) markRead(id string) {
	if err := s.emit(event.EventReadMessage, id); err != nil {
		s.logger.Debug("read receipt not sent", zap.String("message_id", id), zap.Error(err))
	}
}

func (s *Session) readLoop() {
	defer close(s.done)

	for {
		var ev event.WsEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.err = err
			}
			return
		}
		if err := s.dispatch(ev); err != nil {
			s.logger.Warn("malformed event", zap.String("event", ev.Event), zap.Error(err))
		}
	}
}

func (s *Session) dispatch(ev event.WsEvent) error {
	switch ev.Event {
	case event.EventNewMessage:
		var msg model.Message
		if err := ev.Decode(&msg); err != nil {
			return err
		}
		s.onNewMessage(msg)

	case event.EventMessageStatus:
		var update model.MessageStatusUpdate
		if err := ev.Decode(&update); err != nil {
			return err
		}
		s.onStatus(update.MessageID, update.Status)

	case event.EventMessageRead:
		var seen model.MessageSeen
		if err := ev.Decode(&seen); err != nil {
			return err
		}
		s.onStatus(seen.MessageID, model.StatusRead)

	case event.EventUserOnline, event.EventUserOffline:
		var userID string
		if err := ev.Decode(&userID); err != nil {
			return err
		}
		online := ev.Event == event.EventUserOnline
		s.SetOnline(userID, online)
		if s.handlers.OnPresence != nil {
			s.handlers.OnPresence(userID, online)
		}

	case event.EventTypingStart, event.EventTypingStop:
		var userID string
		if err := ev.Decode(&userID); err != nil {
			return err
		}
		if s.handlers.OnTyping != nil {
			s.handlers.OnTyping(userID, ev.Event == event.EventTypingStart)
		}

	case event.EventError:
		var payload model.ErrorPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}
		if conv := s.Conversation(); conv != nil && payload.ClientID != "" {
			conv.Discard(payload.ClientID)
		}
		if s.handlers.OnError != nil {
			s.handlers.OnError(payload)
		}
	}
	return nil
}

// opened returns the open conversation. When there is none yet it runs keep
// so the event can be replayed by the first Open.
func (s *Session) opened(keep func()) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		keep()
	}
	return s.open
}

func (s *Session) onNewMessage(msg model.Message) {
	conv := s.opened(func() {
		if len(s.backlog) < maxBacklog {
			s.backlog = append(s.backlog, msg)
		}
	})
	if conv == nil || !conv.Belongs(msg) {
		return
	}

	outcome := conv.Reconcile(msg)
	if msg.ReceiverID == s.userID && msg.Status != model.StatusRead && outcome != Duplicate {
		s.markRead(msg.ID)
	}
	if s.handlers.OnMessage != nil {
		s.handlers.OnMessage(msg, outcome)
	}
}

func (s *Session) onStatus(id string, status model.MessageStatus) {
	conv := s.opened(func() {
		if len(s.statuses) < maxBacklog {
			s.statuses = append(s.statuses, statusUpdate{id, status})
		}
	})
	if conv != nil {
		conv.ApplyStatus(id, status)
	}
	if s.handlers.OnStatus != nil {
		s.handlers.OnStatus(id, status)
	}
}
