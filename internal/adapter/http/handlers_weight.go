package adapthttp

import (
	"fmt"
	"net/http"

	"weighttogo/internal/domain"
)

type weightRequest struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Date  string  `json:"date"`
	Notes string  `json:"notes"`
}

var errDateRequired = fmt.Errorf("%w: date is required", domain.ErrInvalidInput)

func (s *Server) handleListWeights(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 14)
	items, err := s.weights.ListRecent(r.Context(), userFrom(r).ID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleRecordWeight(w http.ResponseWriter, r *http.Request) {
	var body weightRequest
	if err := parseJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	unit, err := domain.ParseUnit(body.Unit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := parseDay(body.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	entry, earned, err := s.weights.RecordWeight(r.Context(), userFrom(r).ID, body.Value, unit, date, body.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"entry": entry, "achievements": earned})
}

func (s *Server) handleUpdateWeight(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body weightRequest
	if err := parseJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	unit, err := domain.ParseUnit(body.Unit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := parseDay(body.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if date.IsZero() {
		s.fail(w, r, errDateRequired)
		return
	}

	entry, err := s.weights.UpdateEntry(r.Context(), userFrom(r).ID, id, body.Value, unit, date, body.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (s *Server) handleDeleteWeight(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.weights.DeleteEntry(r.Context(), userFrom(r).ID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
