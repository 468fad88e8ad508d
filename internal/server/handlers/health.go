package handlers

import (
	"net/http"
	"time"

	"github.com/gubancs/leafmap/internal/server/response"
	"github.com/gubancs/leafmap/pkg/logging"
)

// HandleHealth handles GET /health (liveness).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "leafmap",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready. It fails when a configured
// snapshot store cannot be reached.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	storeStatus := "disabled"
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn().Err(err).Msg("Snapshot store not reachable")
			response.ServiceUnavailable(w, "Snapshot store not available")
			return
		}
		storeStatus = "ok"
	}

	response.OK(w, map[string]any{
		"status":            "ready",
		"uptime":            time.Since(h.startTime).Round(time.Second).String(),
		"sessions":          h.sessions.Len(),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
		"store":             storeStatus,
		"cache": map[string]any{
			"items": h.cache.GetStats().ItemCount,
		},
	})
}
