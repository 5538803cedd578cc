package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"weighttogo/internal/domain"
)

// NotificationService decides which new achievements the user wants to hear
// about and hands them to the notifier. Delivery itself is the notifier's job.
type NotificationService struct {
	repo     domain.AchievementRepository
	prefs    *PreferenceService
	notifier domain.Notifier
	log      *logrus.Logger
}

// NewNotificationService creates a NotificationService. A nil notifier
// disables dispatch.
func NewNotificationService(repo domain.AchievementRepository, prefs *PreferenceService, notifier domain.Notifier, log *logrus.Logger) *NotificationService {
	return &NotificationService{repo: repo, prefs: prefs, notifier: notifier, log: log}
}

// Dispatch hands the achievements the user has alerts enabled for to the
// notifier and marks them notified, both in storage and in the passed slice.
// Muted achievements stay unnotified. It returns how many were handed off.
func (s *NotificationService) Dispatch(ctx context.Context, userID int64, achievements []domain.Achievement) (int, error) {
	if s.notifier == nil || len(achievements) == 0 {
		return 0, nil
	}

	due, err := s.filter(ctx, userID, achievements)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	if err := s.notifier.NotifyAchievements(ctx, userID, due); err != nil {
		return 0, fmt.Errorf("notify achievements: %w", err)
	}

	var errs []error
	marked := make(map[int64]bool, len(due))
	for _, a := range due {
		if _, err := s.repo.SetAchievementNotified(ctx, a.ID, true); err != nil {
			errs = append(errs, domain.NewStorageError("mark achievement notified", err))
			continue
		}
		marked[a.ID] = true
	}
	for i := range achievements {
		if marked[achievements[i].ID] {
			achievements[i].IsNotified = true
		}
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "count": len(due)}).Info("Achievements dispatched")
	return len(due), errors.Join(errs...)
}

// FlushPending re-dispatches every achievement the user has not been notified
// about yet.
func (s *NotificationService) FlushPending(ctx context.Context, userID int64) (int, error) {
	pending, err := s.repo.ListUnnotifiedAchievements(ctx, userID)
	if err != nil {
		return 0, domain.NewStorageError("list unnotified achievements", err)
	}
	return s.Dispatch(ctx, userID, pending)
}

// MarkNotified sets the notified flag for one achievement.
func (s *NotificationService) MarkNotified(ctx context.Context, achievementID int64, notified bool) error {
	n, err := s.repo.SetAchievementNotified(ctx, achievementID, notified)
	if err != nil {
		return domain.NewStorageError("mark achievement notified", err)
	}
	if n == 0 {
		return fmt.Errorf("achievement %d: %w", achievementID, domain.ErrNotFound)
	}
	return nil
}

func (s *NotificationService) filter(ctx context.Context, userID int64, achievements []domain.Achievement) ([]domain.Achievement, error) {
	goalAlerts, milestoneAlerts := true, true
	if s.prefs != nil {
		var err error
		if goalAlerts, err = s.prefs.GoalAlerts(ctx, userID); err != nil {
			return nil, err
		}
		if milestoneAlerts, err = s.prefs.MilestoneAlerts(ctx, userID); err != nil {
			return nil, err
		}
	}

	due := make([]domain.Achievement, 0, len(achievements))
	for _, a := range achievements {
		switch {
		case a.Type == domain.AchievementGoalReached && !goalAlerts:
			continue
		case a.Type.IsMilestone() && !milestoneAlerts:
			continue
		}
		due = append(due, a)
	}
	return due, nil
}
