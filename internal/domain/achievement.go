package domain

import (
	"context"
	"time"
)

// AchievementType enumerates the recognitions the engine can grant.
type AchievementType string

const (
	AchievementFirstEntry  AchievementType = "FIRST_ENTRY"
	AchievementGoalReached AchievementType = "GOAL_REACHED"
	AchievementStreak7     AchievementType = "STREAK_7"
	AchievementStreak30    AchievementType = "STREAK_30"
	AchievementMilestone5  AchievementType = "MILESTONE_5"
	AchievementMilestone10 AchievementType = "MILESTONE_10"
	AchievementMilestone25 AchievementType = "MILESTONE_25"
	AchievementMilestone50 AchievementType = "MILESTONE_50"
	AchievementNewLow      AchievementType = "NEW_LOW"
)

// LifetimeUnique reports whether at most one achievement of this type may
// ever exist per user.
func (t AchievementType) LifetimeUnique() bool {
	switch t {
	case AchievementFirstEntry, AchievementStreak7, AchievementStreak30,
		AchievementMilestone5, AchievementMilestone10, AchievementMilestone25, AchievementMilestone50:
		return true
	}
	return false
}

// IsMilestone reports whether t is one of the MILESTONE_* types.
func (t AchievementType) IsMilestone() bool {
	switch t {
	case AchievementMilestone5, AchievementMilestone10, AchievementMilestone25, AchievementMilestone50:
		return true
	}
	return false
}

// Achievement is an append-only record of a recognition. Only IsNotified ever
// changes after insert. GoalID is a weak reference to the goal active at grant
// time.
type Achievement struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	GoalID      *int64          `json:"goalId,omitempty"`
	Type        AchievementType `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Value       *float64        `json:"value,omitempty"`
	Unit        Unit            `json:"unit,omitempty"`
	AchievedAt  time.Time       `json:"achievedAt"`
	IsNotified  bool            `json:"isNotified"`
}

// AchievementRepository is the port for achievement persistence.
type AchievementRepository interface {
	// InsertAchievement returns ErrDuplicate when a uniqueness rule already
	// holds a record of the same kind.
	InsertAchievement(ctx context.Context, a *Achievement) (int64, error)
	ListAchievements(ctx context.Context, userID int64) ([]Achievement, error)
	ListAchievementsByType(ctx context.Context, userID int64, t AchievementType) ([]Achievement, error)
	ListUnnotifiedAchievements(ctx context.Context, userID int64) ([]Achievement, error)
	// HasAchievement reports whether the user holds an achievement of type t.
	// A non-nil goalID narrows the check to that goal.
	HasAchievement(ctx context.Context, userID int64, t AchievementType, goalID *int64) (bool, error)
	SetAchievementNotified(ctx context.Context, id int64, notified bool) (int64, error)
}

// Notifier is the outbound collaborator that turns achievements into
// user-facing messages. The engine decides what is due; delivery is the
// notifier's concern.
type Notifier interface {
	NotifyAchievements(ctx context.Context, userID int64, achievements []Achievement) error
}
