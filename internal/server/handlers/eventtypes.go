package handlers

import (
	"net/http"

	"github.com/gubancs/leafmap/internal/server/response"
)

// FamilyTypes lists the event names of one family.
type FamilyTypes struct {
	Family string   `json:"family"`
	Types  []string `json:"types"`
}

// HandleEventTypes handles GET /api/v1/event-types. ?family= limits the
// listing to one family.
func (h *Handlers) HandleEventTypes(w http.ResponseWriter, r *http.Request) {
	want := r.URL.Query().Get("family")

	var out []FamilyTypes
	for _, fam := range h.registry.Families() {
		if want != "" && string(fam) != want {
			continue
		}
		ft := FamilyTypes{Family: string(fam)}
		for _, t := range h.registry.Types(fam) {
			ft.Types = append(ft.Types, t.Name())
		}
		out = append(out, ft)
	}
	if want != "" && len(out) == 0 {
		response.NotFound(w, "Unknown event family", want)
		return
	}

	response.OK(w, map[string]any{
		"families": out,
		"count":    h.registry.Len(),
	})
}
