package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/umachittudi2004/VedazAssingment/internal/auth"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"github.com/umachittudi2004/VedazAssingment/internal/presence"
	"github.com/umachittudi2004/VedazAssingment/internal/repo"
	"github.com/umachittudi2004/VedazAssingment/internal/service"
	"go.uber.org/zap"
)

type testEnv struct {
	hub      *Hub
	registry *presence.Registry
	store    *repo.MemoryStore
	tokens   *auth.TokenManager
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	store := repo.NewMemoryStore()
	registry := presence.NewRegistry()
	broadcaster := presence.NewBroadcaster(registry, store, logger)
	tokens := auth.NewTokenManager("secret", time.Hour, "courier")

	h := NewHub(
		registry,
		service.NewDeliveryPipeline(store, registry, logger),
		service.NewReceiptCoordinator(store, registry, logger),
		service.NewTypingRelay(registry),
		tokens,
		DefaultOptions(),
		logger,
	)
	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))

	t.Cleanup(func() {
		server.Close()
		h.Stop()
		broadcaster.Stop()
	})
	return &testEnv{hub: h, registry: registry, store: store, tokens: tokens, server: server}
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (e *testEnv) join(t *testing.T, conn *websocket.Conn, userID string) {
	t.Helper()
	write(t, conn, event.EventJoin, userID)
	require.Eventually(t, func() bool { return e.registry.IsOnline(userID) }, 2*time.Second, 10*time.Millisecond)
}

func write(t *testing.T, conn *websocket.Conn, name string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(event.MustNew(name, "", payload)))
}

// next reads frames until one named name arrives.
func next(t *testing.T, conn *websocket.Conn, name string) event.WsEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev event.WsEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Event == name {
			return ev
		}
	}
}

func TestHub_Send_To_Online_Receiver(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	// Given alice and bob joined
	alice := env.dial(t, "")
	bob := env.dial(t, "")
	env.join(t, alice, "alice")
	env.join(t, bob, "bob")

	// When alice sends
	write(t, alice, event.EventSendMessage, model.SendMessagePayload{ReceiverID: "bob", Text: "hello", ClientID: "c-1"})

	// Then bob receives it as delivered
	var got model.Message
	req.NoError(next(t, bob, event.EventNewMessage).Decode(&got))
	req.Equal("alice", got.SenderID)
	req.Equal("hello", got.Text)
	req.Equal(model.StatusDelivered, got.Status)

	// And alice gets the echo and the status update
	var echo model.Message
	req.NoError(next(t, alice, event.EventNewMessage).Decode(&echo))
	req.Equal(got.ID, echo.ID)
	req.Equal("c-1", echo.ClientID)

	var update model.MessageStatusUpdate
	req.NoError(next(t, alice, event.EventMessageStatus).Decode(&update))
	req.Equal(model.MessageStatusUpdate{MessageID: got.ID, Status: model.StatusDelivered}, update)

	// When bob reads it, alice is told
	write(t, bob, event.EventReadMessage, got.ID)
	var seen model.MessageSeen
	req.NoError(next(t, alice, event.EventMessageRead).Decode(&seen))
	req.Equal(got.ID, seen.MessageID)
	req.Equal("bob", seen.SeenBy)
}

func TestHub_Rejects_Events_Before_Join(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	conn := env.dial(t, "")
	write(t, conn, event.EventSendMessage, model.SendMessagePayload{ReceiverID: "bob", Text: "hello"})

	var payload model.ErrorPayload
	req.NoError(next(t, conn, event.EventError).Decode(&payload))
	req.Equal(codeNotJoined, payload.Code)
}

func TestHub_Rejects_Blank_Text_With_Client_Id(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	conn := env.dial(t, "")
	env.join(t, conn, "alice")
	write(t, conn, event.EventSendMessage, model.SendMessagePayload{ReceiverID: "bob", Text: "  ", ClientID: "c-9"})

	var payload model.ErrorPayload
	req.NoError(next(t, conn, event.EventError).Decode(&payload))
	req.Equal("validation_error", payload.Code)
	req.Equal("c-9", payload.ClientID)
}

func TestHub_Token_Binds_Join(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	token, err := env.tokens.Generate("alice")
	req.NoError(err)

	conn := env.dial(t, "?token="+token)
	write(t, conn, event.EventJoin, "mallory")

	var payload model.ErrorPayload
	req.NoError(next(t, conn, event.EventError).Decode(&payload))
	req.Equal("unauthorized", payload.Code)
	req.False(env.registry.IsOnline("mallory"))

	env.join(t, conn, "alice")
}

func TestHub_Invalid_Token_Is_Refused(t *testing.T) {
	env := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_Disconnect_Publishes_Offline(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.dial(t, "")
	bob := env.dial(t, "")
	env.join(t, alice, "alice")
	env.join(t, bob, "bob")

	var online string
	for online != "bob" {
		req.NoError(next(t, alice, event.EventUserOnline).Decode(&online))
	}

	req.NoError(bob.Close())

	var offline string
	req.NoError(next(t, alice, event.EventUserOffline).Decode(&offline))
	req.Equal("bob", offline)
	req.Eventually(func() bool { return !env.registry.IsOnline("bob") }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Typing_Relay(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	alice := env.dial(t, "")
	bob := env.dial(t, "")
	env.join(t, alice, "alice")
	env.join(t, bob, "bob")

	write(t, alice, event.EventTypingStart, model.TypingIndicator{ReceiverID: "bob"})

	var from string
	req.NoError(next(t, bob, event.EventTypingStart).Decode(&from))
	req.Equal("alice", from)
}

func TestMonitorService_GetStats(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	monitor := NewMonitorService(env.hub)

	req.Equal("idle", monitor.GetStats().Status)

	conn := env.dial(t, "")
	env.join(t, conn, "alice")
	_ = env.dial(t, "")

	req.Eventually(func() bool {
		return monitor.GetStats().Connections.TotalSockets == 2
	}, 2*time.Second, 10*time.Millisecond)

	stats := monitor.GetStats()
	req.Equal("healthy", stats.Status)
	req.Equal(1, stats.Connections.TotalHandles)
	req.Equal(1, stats.Connections.OnlineUsers)
	req.Equal(1, stats.Connections.UnjoinedConns)
	req.Len(stats.Lanes, DefaultOptions().WorkerPoolSize)
	req.Len(stats.Sessions, 1)
	req.Equal("alice", stats.Sessions[0].UserID)
}
