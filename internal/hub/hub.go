package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/umachittudi2004/VedazAssingment/internal/auth"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"github.com/umachittudi2004/VedazAssingment/internal/presence"
	"github.com/umachittudi2004/VedazAssingment/internal/service"
	"go.uber.org/zap"
)

// Options are the tuning parameters of the hub.
type Options struct {
	WorkerPoolSize     int           // number of inbound lanes
	LaneBuffer         int           // queued events per lane
	SendBuffer         int           // per-connection outbound buffer size
	WriteWait          time.Duration // time allowed to write a message to the peer
	PongWait           time.Duration // time allowed to read the next pong message from the peer
	PingInterval       time.Duration // send pings to peer with this period
	MaxMessageSize     int64         // max inbound message size
	InboundSendTimeout time.Duration // how long a reader waits for a full lane
	HandlerTimeout     time.Duration // deadline of one inbound event
	AllowedOrigins     []string      // "*" or empty allows every origin
	RequireToken       bool          // reject upgrades without ?token=
}

// DefaultOptions mirrors the defaults of the configuration file.
func DefaultOptions() Options {
	return Options{
		WorkerPoolSize:     16,
		LaneBuffer:         256,
		SendBuffer:         256,
		WriteWait:          10 * time.Second,
		PongWait:           20 * time.Second,
		PingInterval:       18 * time.Second,
		MaxMessageSize:     64 * 1024,
		InboundSendTimeout: 500 * time.Millisecond,
		HandlerTimeout:     10 * time.Second,
	}
}

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

// Hub owns the websocket connections. Inbound events are spread over worker
// lanes by connection id so one connection's events are handled in order
// while different connections run concurrently.
type Hub struct {
	registry *presence.Registry
	pipeline *service.DeliveryPipeline
	receipts *service.ReceiptCoordinator
	typing   *service.TypingRelay
	tokens   *auth.TokenManager
	opts     Options
	logger   *zap.Logger

	lanes    []chan inboundMessage
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[string]*Client

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(
	registry *presence.Registry,
	pipeline *service.DeliveryPipeline,
	receipts *service.ReceiptCoordinator,
	typing *service.TypingRelay,
	tokens *auth.TokenManager,
	opts Options,
	logger *zap.Logger,
) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry: registry,
		pipeline: pipeline,
		receipts: receipts,
		typing:   typing,
		tokens:   tokens,
		opts:     opts,
		logger:   logger.Named("hub"),
		lanes:    make([]chan inboundMessage, max(opts.WorkerPoolSize, 1)),
		clients:  make(map[string]*Client),
		ctx:      ctx,
		cancel:   cancel,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	// start worker lanes
	for i := range h.lanes {
		lane := make(chan inboundMessage, max(opts.LaneBuffer, 1))
		h.lanes[i] = lane
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in := <-lane:
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

func getShard(key string, n int) uint32 {
	if key == "" || n <= 1 {
		return 0
	}

	sum := sha1.Sum([]byte(key))
	return binary.BigEndian.Uint32(sum[:4]) % uint32(n)
}

// enqueue hands an inbound event to the client's lane. It reports false
// when the lane stayed full for InboundSendTimeout or the hub is stopping.
func (h *Hub) enqueue(in inboundMessage) bool {
	lane := h.lanes[getShard(in.client.ID(), len(h.lanes))]

	select {
	case lane <- in:
		return true
	default:
	}

	timer := time.NewTimer(h.opts.InboundSendTimeout)
	defer timer.Stop()

	select {
	case lane <- in:
		return true
	case <-timer.C:
		return false
	case <-in.client.ctx.Done():
		return false
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return lo.Contains(h.opts.AllowedOrigins, "*") || lo.Contains(h.opts.AllowedOrigins, origin)
}

// ServeWS upgrades the request. A ?token= query parameter binds the socket
// to the token's user; without one the socket may join as anyone unless
// RequireToken is set.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var authUserID string
	if raw := r.URL.Query().Get("token"); raw != "" {
		claims, err := h.tokens.Validate(raw)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		authUserID = claims.UserID
	} else if h.opts.RequireToken {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}

	if h.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn, h, authUserID)
	h.clientsMu.Lock()
	h.clients[c.ID()] = c
	h.clientsMu.Unlock()

	go c.readMessages()
	go c.writeMessages()
	c.logger.Debug("client connected", zap.String("auth_user", authUserID))
}

// remove drops c from the hub and the registry. Called once per client.
func (h *Hub) remove(c *Client) {
	h.clientsMu.Lock()
	delete(h.clients, c.ID())
	h.clientsMu.Unlock()

	if userID, wasLast := h.registry.Leave(c); userID != "" {
		c.logger.Info("client left", zap.String("user_id", userID), zap.Bool("user_offline", wasLast))
	}
}

// Stop closes every connection and waits for the lanes to drain.
func (h *Hub) Stop() {
	h.cancel()

	h.clientsMu.RLock()
	clients := lo.Values(h.clients)
	h.clientsMu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	h.wg.Wait()
}
