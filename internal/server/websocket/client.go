package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxMessageSize = 64 << 10

	// Outbound frames buffered per client.
	sendBuffer = 256
)

// Client is one browser connection. It implements bridge.Sender.
type Client struct {
	id      string
	session string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	receive func([]byte) error
	logger  *zerolog.Logger

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

// NewClient creates a client for session. receive is called with every
// inbound frame.
func NewClient(session string, hub *Hub, conn *websocket.Conn, receive func([]byte) error) *Client {
	id := uuid.NewString()
	logger := hub.logger.With().Str("session_id", session).Str("client_id", id).Logger()
	return &Client{
		id:        id,
		session:   session,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		receive:   receive,
		logger:    &logger,
		closeCode: websocket.CloseNormalClosure,
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Session returns the session id the client is bound to.
func (c *Client) Session() string { return c.session }

// Send encodes msg and queues it for the write pump. A client that cannot
// keep up is disconnected rather than silently losing commands.
func (c *Client) Send(msg *bridge.Message) error {
	data, err := bridge.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.ErrNotConnected
	}
	select {
	case c.send <- data:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
	}

	c.logger.Warn().Int("buffer", sendBuffer).Msg("WebSocket client send buffer full, disconnecting")
	c.shutdown(websocket.CloseTryAgainLater, "send buffer full")
	return errors.NewIOError("write", c.session, errors.New("send buffer full"))
}

// shutdown closes the send queue once; the write pump then sends a close
// frame with code and closes the connection.
func (c *Client) shutdown(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *Client) closeMessage() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}

// ReadPump feeds inbound frames to the session until the connection
// fails, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, CloseReplaced) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
		if err := c.receive(data); err != nil {
			c.logger.Debug().Err(err).Msg("Inbound frame rejected")
		}
	}
}

// WritePump writes queued frames and keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, c.closeMessage())
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("WebSocket write failed")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
