package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/umachittudi2004/VedazAssingment/internal/auth"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"github.com/umachittudi2004/VedazAssingment/internal/presence"
	"github.com/umachittudi2004/VedazAssingment/internal/repo"
	"github.com/umachittudi2004/VedazAssingment/internal/service"
	"go.uber.org/zap/zaptest"
)

type fakeStats struct{}

func (fakeStats) GetStats() model.MonitorResponse {
	return model.MonitorResponse{Status: "idle"}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	store := repo.NewMemoryStore()
	registry := presence.NewRegistry()
	tokens := auth.NewTokenManager("secret", time.Hour, "courier")
	users := service.NewUserService(store, store, registry, tokens, logger)
	pipeline := service.NewDeliveryPipeline(store, registry, logger)

	authHandler := NewAuthHandler(users)
	userHandler := NewUserHandler(users, pipeline)

	router := gin.New()
	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	secured := router.Group("/", auth.RequireAuth(tokens))
	secured.GET("/users", userHandler.GetAllUsers)
	secured.GET("/conversations/last", userHandler.GetLastMessages)
	secured.GET("/conversations/:id/messages", userHandler.GetConversation)
	secured.POST("/conversations/:id/messages", userHandler.PostMessage)

	router.GET("/cf/api/monitor/stats", NewMonitorHandler(fakeStats{}).GetHubStats)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func register(t *testing.T, router *gin.Engine, username string) service.AuthResult {
	t.Helper()
	w := do(t, router, http.MethodPost, "/auth/register", "", service.Credentials{Username: username, Password: "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res service.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestAuthHandler(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice")
	require.NotEmpty(t, alice.Token)

	t.Run("duplicate username", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/auth/register", "", service.Credentials{Username: "alice", Password: "secret1"})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/auth/register", "", service.Credentials{Username: "x", Password: "1"})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login", func(t *testing.T) {
		req := require.New(t)
		w := do(t, router, http.MethodPost, "/auth/login", "", service.Credentials{Username: "alice", Password: "secret1"})
		req.Equal(http.StatusOK, w.Code)

		var res service.AuthResult
		req.NoError(json.Unmarshal(w.Body.Bytes(), &res))
		req.Equal(alice.User.ID, res.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/auth/login", "", service.Credentials{Username: "alice", Password: "nope-nope"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUserHandler_Conversations(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)
	alice := register(t, router, "alice")
	bob := register(t, router, "bob")

	// users excludes the caller
	w := do(t, router, http.MethodGet, "/users", alice.Token, nil)
	req.Equal(http.StatusOK, w.Code)
	var users []model.UserSummary
	req.NoError(json.Unmarshal(w.Body.Bytes(), &users))
	req.Len(users, 1)
	req.Equal(bob.User.ID, users[0].ID)
	req.False(users[0].Online)

	// post through the pipeline; bob is offline so it stays sent
	w = do(t, router, http.MethodPost, "/conversations/"+bob.User.ID+"/messages", alice.Token,
		map[string]string{"text": "hello", "clientId": "c-1"})
	req.Equal(http.StatusCreated, w.Code, w.Body.String())
	var sent model.Message
	req.NoError(json.Unmarshal(w.Body.Bytes(), &sent))
	req.Equal(model.StatusSent, sent.Status)
	req.Equal("c-1", sent.ClientID)

	// blank text is rejected
	w = do(t, router, http.MethodPost, "/conversations/"+bob.User.ID+"/messages", alice.Token,
		map[string]string{"text": "  "})
	req.Equal(http.StatusBadRequest, w.Code)

	// bob sees the history
	w = do(t, router, http.MethodGet, "/conversations/"+alice.User.ID+"/messages", bob.Token, nil)
	req.Equal(http.StatusOK, w.Code)
	var history []model.Message
	req.NoError(json.Unmarshal(w.Body.Bytes(), &history))
	req.Len(history, 1)
	req.Equal(sent.ID, history[0].ID)

	w = do(t, router, http.MethodGet, "/conversations/last", bob.Token, nil)
	req.Equal(http.StatusOK, w.Code)
	var previews []model.ConversationPreview
	req.NoError(json.Unmarshal(w.Body.Bytes(), &previews))
	req.Len(previews, 1)
	req.Equal(alice.User.ID, previews[0].PartnerID)
}

func TestUserHandler_Requires_Token(t *testing.T) {
	router := newTestRouter(t)
	w := do(t, router, http.MethodGet, "/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMonitorHandler(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/cf/api/monitor/stats", "", nil)
	req.Equal(http.StatusOK, w.Code)

	var body struct {
		IsSuccess    bool
		ResponseBody model.MonitorResponse
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	req.True(body.IsSuccess)
	req.Equal("idle", body.ResponseBody.Status)
}
