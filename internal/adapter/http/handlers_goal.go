package adapthttp

import (
	"fmt"
	"net/http"

	"weighttogo/internal/domain"
)

func (s *Server) handleActiveGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.goals.ActiveGoal(r.Context(), userFrom(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goal": goal})
}

// handleCreateGoal makes the new goal active unless the body says
// "activate": false.
func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartWeight float64 `json:"startWeight"`
		GoalWeight  float64 `json:"goalWeight"`
		Unit        string  `json:"unit"`
		TargetDate  string  `json:"targetDate"`
		Activate    *bool   `json:"activate"`
	}
	if err := parseJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	unit, err := domain.ParseUnit(body.Unit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	target, err := parseDay(body.TargetDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	g := &domain.GoalWeight{
		UserID:      userFrom(r).ID,
		StartWeight: body.StartWeight,
		GoalWeight:  body.GoalWeight,
		Unit:        unit,
	}
	if !target.IsZero() {
		g.TargetDate = &target
	}

	if body.Activate == nil || *body.Activate {
		_, err = s.goals.SetNewActiveGoal(r.Context(), g)
	} else {
		_, err = s.goals.CreateGoal(r.Context(), g)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"goal": g})
}

func (s *Server) handleGoalHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.goals.GoalHistory(r.Context(), userFrom(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleDeactivateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if g.UserID != userFrom(r).ID {
		s.fail(w, r, fmt.Errorf("goal %d: %w", id, domain.ErrNotFound))
		return
	}
	if _, err := s.goals.DeactivateGoal(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
