package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/umachittudi2004/VedazAssingment/internal/model"
)

const defaultTimeout = 15 * time.Second

// AuthResult mirrors the body of register and login.
type AuthResult struct {
	Token string            `json:"token"`
	User  model.UserSummary `json:"user"`
}

// APIError is a non-2xx response of the REST API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// API calls the REST endpoints of the server.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken sets the bearer token used by authenticated calls.
func (a *API) SetToken(token string) { a.token = token }

func (a *API) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	var out AuthResult
	err := a.do(ctx, http.MethodPost, "/auth/register", map[string]string{"username": username, "password": password}, &out)
	return &out, err
}

func (a *API) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	var out AuthResult
	err := a.do(ctx, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, &out)
	return &out, err
}

func (a *API) Users(ctx context.Context) ([]model.UserSummary, error) {
	var out []model.UserSummary
	err := a.do(ctx, http.MethodGet, "/users", nil, &out)
	return out, err
}

// History returns the conversation with peerID, oldest first.
func (a *API) History(ctx context.Context, peerID string) ([]model.Message, error) {
	var out []model.Message
	err := a.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(peerID)+"/messages", nil, &out)
	return out, err
}

// SendFallback posts a message over REST when the socket is unavailable.
func (a *API) SendFallback(ctx context.Context, peerID, text, clientID string) (*model.Message, error) {
	var out model.Message
	body := map[string]string{"text": text, "clientId": clientID}
	err := a.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(peerID)+"/messages", body, &out)
	return &out, err
}

func (a *API) LastMessages(ctx context.Context) ([]model.ConversationPreview, error) {
	var out []model.ConversationPreview
	err := a.do(ctx, http.MethodGet, "/conversations/last", nil, &out)
	return out, err
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
