package domain

import (
	"context"
	"time"
)

// GoalWeight is a user's target weight. At most one goal per user is active.
type GoalWeight struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"userId"`
	StartWeight  float64    `json:"startWeight"`
	GoalWeight   float64    `json:"goalWeight"`
	Unit         Unit       `json:"unit"`
	TargetDate   *time.Time `json:"targetDate,omitempty"`
	IsActive     bool       `json:"isActive"`
	IsAchieved   bool       `json:"isAchieved"`
	AchievedDate *time.Time `json:"achievedDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsLoss reports whether the goal is reached by losing weight. A goal equal to
// its start weight counts as a loss goal.
func (g GoalWeight) IsLoss() bool {
	return g.GoalWeight <= g.StartWeight
}

// Reached reports whether weight w (in the goal's unit) is at or past the goal
// in the goal's direction.
func (g GoalWeight) Reached(w float64) bool {
	if g.IsLoss() {
		return w <= g.GoalWeight
	}
	return w >= g.GoalWeight
}

// GoalRepository is the port for goal persistence.
type GoalRepository interface {
	InsertGoal(ctx context.Context, g *GoalWeight) (int64, error)
	GetGoal(ctx context.Context, id int64) (*GoalWeight, error)
	// ActiveGoals returns every goal flagged active for the user. Correct
	// operation yields zero or one.
	ActiveGoals(ctx context.Context, userID int64) ([]GoalWeight, error)
	// ListGoals returns the user's goals, newest first.
	ListGoals(ctx context.Context, userID int64) ([]GoalWeight, error)
	UpdateGoal(ctx context.Context, g *GoalWeight) (int64, error)
	DeactivateGoal(ctx context.Context, id int64) (int64, error)
	DeactivateAllGoals(ctx context.Context, userID int64) (int64, error)
	// ReplaceActiveGoal atomically deactivates all of g.UserID's goals and
	// inserts g as active. On failure nothing is visible and the error is a
	// *TransactionError.
	ReplaceActiveGoal(ctx context.Context, g *GoalWeight) (int64, error)
}
