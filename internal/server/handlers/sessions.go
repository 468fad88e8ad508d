package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/server/events"
	"github.com/gubancs/leafmap/internal/server/response"
	"github.com/gubancs/leafmap/pkg/leaflet"
	"github.com/gubancs/leafmap/pkg/logging"
)

// SessionDetail is the body of GET /sessions/{id}.
type SessionDetail struct {
	Session  leafmap.Info     `json:"session"`
	Entities int              `json:"entities"`
	Snapshot leaflet.Snapshot `json:"snapshot"`
}

// HandleListSessions handles GET /api/v1/sessions.
func (h *Handlers) HandleListSessions(w http.ResponseWriter, _ *http.Request) {
	infos := h.sessions.List()
	response.OK(w, map[string]any{
		"sessions": infos,
		"count":    len(infos),
	})
}

// HandleGetSession handles GET /api/v1/sessions/{id}. The snapshot is
// served from cache while it is fresh.
func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.sessions.Get(id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	snap, ok := h.cache.Snapshot(id)
	if !ok {
		snap, err = sess.Snapshot(r.Context())
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		h.cache.Put(id, snap)
	}

	response.OK(w, SessionDetail{
		Session:  sess.Info(),
		Entities: snap.Count(),
		Snapshot: snap,
	})
}

// HandleDeleteSession handles DELETE /api/v1/sessions/{id}.
func (h *Handlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.sessions.Remove(id); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	logging.FromContext(r.Context()).Info().Str("session_id", id).Msg("Session deleted via API")
	response.OK(w, map[string]any{"id": id, "deleted": true})
}

// HandleSaveSnapshot handles POST /api/v1/sessions/{id}/snapshot.
func (h *Handlers) HandleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.ServiceUnavailable(w, "Snapshot store not configured")
		return
	}
	id := mux.Vars(r)["id"]
	sess, err := h.sessions.Get(id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	rec, err := h.store.Save(r.Context(), id, snap)
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Str("session_id", id).Msg("Saving snapshot failed")
		response.ErrorFromType(w, err)
		return
	}
	h.cache.Put(id, snap)
	h.broker.Publish(events.SnapshotSaved, id, map[string]any{
		"version":  rec.Version,
		"entities": rec.Entities,
	})
	response.Created(w, rec)
}

// HandleListSnapshots handles GET /api/v1/snapshots.
func (h *Handlers) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.ServiceUnavailable(w, "Snapshot store not configured")
		return
	}
	summaries, err := h.store.List(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"snapshots": summaries,
		"count":     len(summaries),
	})
}

// HandleGetSnapshot handles GET /api/v1/snapshots/{id}. ?version=N picks
// a version; the latest is returned otherwise.
func (h *Handlers) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.ServiceUnavailable(w, "Snapshot store not configured")
		return
	}
	id := mux.Vars(r)["id"]

	raw := r.URL.Query().Get("version")
	if raw == "" {
		rec, err := h.store.Latest(r.Context(), id)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		response.OK(w, rec)
		return
	}

	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		response.BadRequest(w, "Invalid version", "version must be a positive integer")
		return
	}
	rec, err := h.store.Version(r.Context(), id, version)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, rec)
}
