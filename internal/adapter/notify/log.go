// Package notify provides domain.Notifier implementations.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"weighttogo/internal/domain"
)

// LogNotifier writes each achievement to the structured log. It stands in
// for a push or SMS channel.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

var _ domain.Notifier = (*LogNotifier)(nil)

// NotifyAchievements logs one line per achievement.
func (n *LogNotifier) NotifyAchievements(_ context.Context, userID int64, achievements []domain.Achievement) error {
	for _, a := range achievements {
		fields := logrus.Fields{
			"user_id":        userID,
			"achievement_id": a.ID,
			"type":           a.Type,
		}
		if a.Value != nil {
			fields["value"] = *a.Value
			fields["unit"] = a.Unit
		}
		n.log.WithFields(fields).Info(a.Title + " " + a.Description)
	}
	return nil
}
