package adapthttp

import (
	"net/http"

	"weighttogo/internal/domain"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.progress.Dashboard(r.Context(), userFrom(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleTrend serves the daily chart. Without ?unit= it uses the user's
// preferred unit.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r).ID
	days := intQuery(r, "days", 30)

	var unit domain.Unit
	if q := r.URL.Query().Get("unit"); q != "" {
		u, err := domain.ParseUnit(q)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		unit = u
	} else {
		pref, err := s.prefs.WeightUnit(r.Context(), userID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		unit = pref
	}

	points, err := s.progress.Trend(r.Context(), userID, days, unit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit": unit, "points": points})
}
