package adapthttp

import (
	"net/http"

	"weighttogo/internal/domain"
)

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.prefs.Get(r.Context(), userFrom(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutPreferences applies only the fields present in the body.
func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WeightUnit      *string `json:"weightUnit"`
		GoalAlerts      *bool   `json:"goalAlerts"`
		MilestoneAlerts *bool   `json:"milestoneAlerts"`
	}
	if err := parseJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	userID := userFrom(r).ID
	p, err := s.prefs.Get(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if body.WeightUnit != nil {
		u, err := domain.ParseUnit(*body.WeightUnit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		p.WeightUnit = u
	}
	if body.GoalAlerts != nil {
		p.GoalAlerts = *body.GoalAlerts
	}
	if body.MilestoneAlerts != nil {
		p.MilestoneAlerts = *body.MilestoneAlerts
	}

	if err := s.prefs.Update(r.Context(), userID, p); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
