package hub

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
	"go.uber.org/zap"
)

// Client is one upgraded websocket. It becomes a presence handle once it
// has joined as a user.
type Client struct {
	id         string
	authUserID string // user proven by the handshake token, empty if none
	conn       *websocket.Conn
	hub        *Hub
	egress     chan event.WsEvent
	logger     *zap.Logger

	// cancel or stop goroutine
	cancel   context.CancelFunc
	ctx      context.Context
	once     sync.Once
	closed   bool         // tracks if client is closed
	closedMu sync.RWMutex // protects closed flag
}

func newClient(conn *websocket.Conn, h *Hub, authUserID string) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	id := uuid.NewString()

	return &Client{
		id:         id,
		authUserID: authUserID,
		conn:       conn,
		hub:        h,
		egress:     make(chan event.WsEvent, h.opts.SendBuffer),
		logger:     h.logger.With(zap.String("conn_id", id)),
		cancel:     cancel,
		ctx:        ctx,
	}
}

// ID implements presence.Conn.
func (c *Client) ID() string { return c.id }

// Send enqueues ev without blocking. A full egress buffer means the peer is
// not keeping up; the client is dropped and false is returned.
func (c *Client) Send(ev event.WsEvent) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case c.egress <- ev:
		return true
	case <-c.ctx.Done():
		return false
	default:
		c.logger.Warn("egress full, disconnecting client", zap.String("event", ev.Event))
		go c.Close()
		return false
	}
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// Close marks the client closed before removing it from the registry, so a
// join still queued for this client cannot register a dead handle.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.cancel()
		c.hub.remove(c)
	})
}

func (c *Client) readMessages() {
	defer c.Close()

	opts := c.hub.opts
	c.conn.SetReadLimit(opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		var ev event.WsEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			c.logReadError(err)
			return
		}

		if !c.hub.enqueue(inboundMessage{client: c, event: ev}) {
			c.logger.Warn("inbound queue full, dropping client")
			return
		}
	}
}

func (c *Client) logReadError(err error) {
	var ne net.Error
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
	):
		c.logger.Debug("client disconnected")
	case errors.As(err, &ne) && ne.Timeout():
		c.logger.Info("client timed out")
	case c.IsClosed():
	default:
		c.logger.Warn("error reading from client", zap.Error(err))
	}
}

func (c *Client) writeMessages() {
	opts := c.hub.opts
	ticker := time.NewTicker(opts.PingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(opts.WriteWait))
			return
		case ev := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteWait)); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
