package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gubancs/leafmap/internal/server/response"
	ws "github.com/gubancs/leafmap/internal/server/websocket"
	"github.com/gubancs/leafmap/pkg/logging"
)

// HandleWebSocket handles GET /api/v1/sessions/{id}/ws. The connection
// becomes the transport of session id, which is created on first use. A
// second connection for the same id replaces the first and reattaches.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	logger := logging.FromContext(r.Context())

	sess, created, err := h.sessions.GetOrCreate(id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Str("session_id", id).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(id, h.wsHub, conn, sess.Receive)
	h.wsHub.Register(client)
	go client.WritePump()

	if err := sess.Attach(r.Context(), client); err != nil {
		logger.Error().Err(err).Str("session_id", id).Msg("Attaching session failed")
		h.wsHub.Unregister(client)
		return
	}
	h.cache.Invalidate(id)

	logger.Debug().
		Str("session_id", id).
		Str("client_id", client.ID()).
		Bool("created", created).
		Msg("Session bound to WebSocket")
	go client.ReadPump()
}

// HandleSSE handles GET /api/v1/events/stream.
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
