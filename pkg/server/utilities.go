package server

import (
	"net/http"

	"github.com/heliometric/heliometric/pkg/equipment"
)

func (s *Server) handleListUtilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.utilities.ListUtilities())
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.irradiation.Sources())
}

func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := equipment.Kind(r.URL.Query().Get("kind"))
	switch kind {
	case "", equipment.KindModule, equipment.KindInverter:
	default:
		writeJSONError(w, "invalid kind", http.StatusBadRequest)
		return
	}
	if s.catalog == nil {
		writeJSON(w, []equipment.Equipment{})
		return
	}
	list, err := s.catalog.List(ctx, kind, s.getTeamID(r), s.getUser(r).ID)
	if err != nil {
		writeError(ctx, w, "failed to list equipment", err)
		return
	}
	writeJSON(w, list)
}
