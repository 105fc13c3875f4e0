package adapthttp

import (
	"net/http"

	"fuellog/internal/domain"
)

func (s *Server) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user := userFromContext(r)
	days := intQuery(r, "days", s.stats.Policy().WindowDays)
	unit := r.URL.Query().Get("unit")

	summary, err := s.stats.Summary(r.Context(), user.ID, days, unit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if unit == "" {
		unit = domain.UnitKmPerLiter
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit": unit, "summary": summary})
}

func (s *Server) handleStatsMonthly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	items, err := s.stats.MonthlyUsage(r.Context(), userFromContext(r).ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleStatsEfficiency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	unit := r.URL.Query().Get("unit")
	pairs, trend, err := s.stats.EfficiencyTrend(r.Context(), userFromContext(r).ID, unit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if unit == "" {
		unit = domain.UnitKmPerLiter
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit": unit, "items": pairs, "trend": trend})
}

func (s *Server) handleStatsUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	items, err := s.stats.UsageTrend(r.Context(), userFromContext(r).ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cal, err := s.stats.Calendar(r.Context(), userFromContext(r).ID, r.URL.Query().Get("month"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}
