package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"weighttogo/internal/domain"
	"weighttogo/internal/metrics"
)

// minGoalDelta is the smallest allowed distance between start and goal weight.
const minGoalDelta = 0.1

// GoalService owns the goal lifecycle and the one-active-goal-per-user rule.
type GoalService struct {
	repo    domain.GoalRepository
	log     *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewGoalService creates a GoalService backed by the given repository.
func NewGoalService(repo domain.GoalRepository, log *logrus.Logger, m *metrics.Metrics) *GoalService {
	return &GoalService{repo: repo, log: log, metrics: m, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *GoalService) WithClock(now func() time.Time) *GoalService {
	s.now = now
	return s
}

// ValidateGoal checks a goal before it is stored: supported unit, plausible
// weights that differ by at least 0.1, and a target date after today.
func ValidateGoal(g *domain.GoalWeight, today time.Time) error {
	if g == nil {
		return fmt.Errorf("%w: goal is required", domain.ErrInvalidInput)
	}
	if !g.Unit.Valid() {
		return fmt.Errorf("%w: unit must be \"lbs\" or \"kg\"", domain.ErrInvalidInput)
	}
	if !domain.ValidWeight(g.StartWeight, g.Unit) {
		return fmt.Errorf("%w: start weight %v out of range", domain.ErrInvalidInput, g.StartWeight)
	}
	if !domain.ValidWeight(g.GoalWeight, g.Unit) {
		return fmt.Errorf("%w: goal weight %v out of range", domain.ErrInvalidInput, g.GoalWeight)
	}
	if math.Abs(g.GoalWeight-g.StartWeight) < minGoalDelta {
		return fmt.Errorf("%w: goal weight must differ from start weight", domain.ErrInvalidInput)
	}
	if g.TargetDate != nil && !domain.DayOf(*g.TargetDate).After(domain.DayOf(today)) {
		return fmt.Errorf("%w: target date must be in the future", domain.ErrInvalidInput)
	}
	return nil
}

// CreateGoal stores g as an inactive goal and leaves every other goal alone.
// Use SetNewActiveGoal to make a goal active.
func (s *GoalService) CreateGoal(ctx context.Context, g *domain.GoalWeight) (int64, error) {
	now := s.now()
	if err := ValidateGoal(g, now); err != nil {
		return 0, err
	}
	g.IsActive = false
	g.CreatedAt = now
	g.UpdatedAt = now

	id, err := s.repo.InsertGoal(ctx, g)
	if err != nil {
		s.log.WithField("user_id", g.UserID).WithError(err).Error("Failed to insert goal")
		return 0, domain.NewStorageError("insert goal", err)
	}
	g.ID = id
	s.log.WithFields(logrus.Fields{"user_id": g.UserID, "goal_id": id}).Info("Goal created")
	return id, nil
}

// ActiveGoal returns the user's single active goal, or nil if there is none.
// More than one active goal is reported as ErrInvariantViolation instead of
// picking one.
func (s *GoalService) ActiveGoal(ctx context.Context, userID int64) (*domain.GoalWeight, error) {
	goals, err := s.repo.ActiveGoals(ctx, userID)
	if err != nil {
		return nil, domain.NewStorageError("get active goal", err)
	}
	switch len(goals) {
	case 0:
		return nil, nil
	case 1:
		g := goals[0]
		return &g, nil
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "active": len(goals)}).Error("Multiple active goals")
	return nil, fmt.Errorf("%w: user %d has %d active goals", domain.ErrInvariantViolation, userID, len(goals))
}

// SetNewActiveGoal deactivates every goal of g.UserID and inserts g as the
// active goal in one transaction. On failure the returned error is a
// *domain.TransactionError and no partial change is visible.
func (s *GoalService) SetNewActiveGoal(ctx context.Context, g *domain.GoalWeight) (int64, error) {
	now := s.now()
	if err := ValidateGoal(g, now); err != nil {
		return 0, err
	}
	g.IsActive = true
	g.IsAchieved = false
	g.AchievedDate = nil
	g.CreatedAt = now
	g.UpdatedAt = now

	id, err := s.repo.ReplaceActiveGoal(ctx, g)
	if err != nil {
		s.metrics.GoalSwitched(false)
		s.log.WithField("user_id", g.UserID).WithError(err).Error("Goal switch rolled back")
		var te *domain.TransactionError
		if errors.As(err, &te) {
			return 0, err
		}
		return 0, &domain.TransactionError{Op: "set new active goal", Err: err}
	}
	s.metrics.GoalSwitched(true)
	g.ID = id
	s.log.WithFields(logrus.Fields{"user_id": g.UserID, "goal_id": id}).Info("New active goal set")
	return id, nil
}

// GetGoal returns a goal by id.
func (s *GoalService) GetGoal(ctx context.Context, goalID int64) (*domain.GoalWeight, error) {
	g, err := s.repo.GetGoal(ctx, goalID)
	if err != nil {
		return nil, domain.NewStorageError("get goal", err)
	}
	return g, nil
}

// DeactivateGoal clears the active flag of one goal.
func (s *GoalService) DeactivateGoal(ctx context.Context, goalID int64) (int64, error) {
	n, err := s.repo.DeactivateGoal(ctx, goalID)
	if err != nil {
		return 0, domain.NewStorageError("deactivate goal", err)
	}
	s.log.WithFields(logrus.Fields{"goal_id": goalID, "rows": n}).Info("Goal deactivated")
	return n, nil
}

// DeactivateAllGoals clears the active flag of every goal the user owns.
func (s *GoalService) DeactivateAllGoals(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.DeactivateAllGoals(ctx, userID)
	if err != nil {
		return 0, domain.NewStorageError("deactivate all goals", err)
	}
	return n, nil
}

// GoalHistory returns all of the user's goals, newest first.
func (s *GoalService) GoalHistory(ctx context.Context, userID int64) ([]domain.GoalWeight, error) {
	goals, err := s.repo.ListGoals(ctx, userID)
	if err != nil {
		return nil, domain.NewStorageError("list goals", err)
	}
	sort.SliceStable(goals, func(i, j int) bool {
		if goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].ID > goals[j].ID
		}
		return goals[i].CreatedAt.After(goals[j].CreatedAt)
	})
	return goals, nil
}

// MarkGoalAchieved sets the terminal achieved flag. Calling it on an already
// achieved goal changes nothing.
func (s *GoalService) MarkGoalAchieved(ctx context.Context, goalID int64, on time.Time) error {
	g, err := s.repo.GetGoal(ctx, goalID)
	if err != nil {
		return domain.NewStorageError("get goal", err)
	}
	if g.IsAchieved {
		return nil
	}
	day := domain.DayOf(on)
	g.IsAchieved = true
	g.AchievedDate = &day
	g.UpdatedAt = s.now()
	if _, err := s.repo.UpdateGoal(ctx, g); err != nil {
		return domain.NewStorageError("update goal", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": g.UserID, "goal_id": goalID}).Info("Goal achieved")
	return nil
}
