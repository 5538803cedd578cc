package adapthttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"weighttogo/internal/domain"
)

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	var (
		items []domain.Achievement
		err   error
	)
	userID := userFrom(r).ID
	if t := r.URL.Query().Get("type"); t != "" {
		items, err = s.achievements.ListByType(r.Context(), userID, domain.AchievementType(t))
	} else {
		items, err = s.achievements.ListAchievements(r.Context(), userID)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleFlushAchievements re-sends achievements the notifier never accepted.
func (s *Server) handleFlushAchievements(w http.ResponseWriter, r *http.Request) {
	n, err := s.notifications.FlushPending(r.Context(), userFrom(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notified": n})
}

func (s *Server) handleMarkNotified(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body := struct {
		Notified *bool `json:"notified"`
	}{}
	if err := parseJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, r, err)
		return
	}
	notified := body.Notified == nil || *body.Notified

	owned, err := s.achievements.ListAchievements(r.Context(), userFrom(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !containsAchievement(owned, id) {
		s.fail(w, r, fmt.Errorf("achievement %d: %w", id, domain.ErrNotFound))
		return
	}

	if err := s.notifications.MarkNotified(r.Context(), id, notified); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "notified": notified})
}

func containsAchievement(list []domain.Achievement, id int64) bool {
	for _, a := range list {
		if a.ID == id {
			return true
		}
	}
	return false
}
