package adapthttp

import (
	"net/http"

	"fuellog/internal/domain"
)

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	switch r.Method {
	case http.MethodGet:
		items, err := s.fuel.List(r.Context(), user.ID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case http.MethodPost:
		var in domain.FuelRecordInput
		if err := parseJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		id, err := s.fuel.Create(r.Context(), user.ID, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodPatch:
		var patch domain.FuelRecordPatch
		if err := parseJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.fuel.Update(r.Context(), user.ID, id, patch); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})

	case http.MethodDelete:
		if err := s.fuel.Delete(r.Context(), user.ID, id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
