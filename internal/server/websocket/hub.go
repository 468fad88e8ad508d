// Package websocket carries bridge messages between a session and its
// browser over gorilla/websocket. Each browser connection is a Client
// bound to one session id; the Hub keeps at most one Client per session.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// CloseReplaced is sent to a connection displaced by a newer connection
// for the same session.
const CloseReplaced = 4000

// Hub tracks the live connection of each session.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*Client
	onDisconnect []func(sessionID string)
	logger       *zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// OnDisconnect registers fn to run when a session's current connection
// goes away. It is not called for connections displaced by a reconnect.
func (h *Hub) OnDisconnect(fn func(sessionID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconnect = append(h.onDisconnect, fn)
}

// Register makes c the connection of its session. A previous connection
// for the same session is closed and returned.
func (h *Hub) Register(c *Client) *Client {
	h.mu.Lock()
	prev := h.clients[c.session]
	h.clients[c.session] = c
	total := len(h.clients)
	h.mu.Unlock()

	if prev != nil && prev != c {
		prev.shutdown(CloseReplaced, "session reattached")
		h.logger.Info().
			Str("session_id", c.session).
			Str("client_id", prev.id).
			Msg("WebSocket client replaced by reconnect")
	}
	h.logger.Info().
		Str("session_id", c.session).
		Str("client_id", c.id).
		Int("total_clients", total).
		Msg("WebSocket client connected")
	if prev == c {
		return nil
	}
	return prev
}

// Unregister forgets c. Disconnect callbacks run only when c was still
// the session's current connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current := h.clients[c.session] == c
	if current {
		delete(h.clients, c.session)
	}
	total := len(h.clients)
	callbacks := append([]func(string){}, h.onDisconnect...)
	h.mu.Unlock()

	c.shutdown(websocket.CloseNormalClosure, "")
	if !current {
		return
	}
	h.logger.Info().
		Str("session_id", c.session).
		Str("client_id", c.id).
		Int("total_clients", total).
		Msg("WebSocket client disconnected")
	for _, fn := range callbacks {
		fn(c.session)
	}
}

// Client returns the current connection of a session.
func (h *Hub) Client(sessionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[sessionID]
	return c, ok
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Sessions returns the ids of sessions with a live connection.
func (h *Hub) Sessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run closes every connection once ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown(websocket.CloseGoingAway, "server shutting down")
	}
	h.logger.Info().Int("closed", len(clients)).Msg("WebSocket hub shut down")
}
