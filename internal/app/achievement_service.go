package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"weighttogo/internal/domain"
	"weighttogo/internal/metrics"
)

// milestoneThresholds are the cumulative changes, in the goal's unit, that
// earn a MILESTONE_* achievement.
var milestoneThresholds = []struct {
	Type   domain.AchievementType
	Amount float64
}{
	{domain.AchievementMilestone5, 5},
	{domain.AchievementMilestone10, 10},
	{domain.AchievementMilestone25, 25},
	{domain.AchievementMilestone50, 50},
}

// RuleError reports an achievement rule that was skipped because storage could
// not answer. The rest of the check carries on.
type RuleError struct {
	Rule domain.AchievementType
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("achievement rule %s skipped: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// AchievementService detects and records achievements after a weight entry is
// saved. Every rule checks for an existing grant before inserting and skips
// itself when that check fails.
type AchievementService struct {
	repo    domain.AchievementRepository
	weights domain.WeightRepository
	goals   *GoalService
	log     *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.Mutex
	locks map[int64]*userLock
}

// userLock serialises CheckAchievements for one user. refs counts holders and
// waiters; the entry is dropped from the map when it reaches zero.
type userLock struct {
	sync.Mutex
	refs int
}

// NewAchievementService creates an AchievementService.
func NewAchievementService(
	repo domain.AchievementRepository,
	weights domain.WeightRepository,
	goals *GoalService,
	log *logrus.Logger,
	m *metrics.Metrics,
) *AchievementService {
	return &AchievementService{
		repo:    repo,
		weights: weights,
		goals:   goals,
		log:     log,
		metrics: m,
		now:     time.Now,
		locks:   make(map[int64]*userLock),
	}
}

// WithClock replaces the time source, for tests.
func (s *AchievementService) WithClock(now func() time.Time) *AchievementService {
	s.now = now
	return s
}

// candidate is an achievement a rule wants to grant. scope narrows the
// existence check to one goal; unique=false skips the check entirely.
type candidate struct {
	ach    domain.Achievement
	scope  *int64
	unique bool
}

// checkState is everything the rules read, loaded once per call.
type checkState struct {
	userID  int64
	value   float64
	unit    domain.Unit
	goal    *domain.GoalWeight
	goalErr error
	entries []domain.WeightEntry
	priors  []domain.WeightEntry
	histErr error
}

// CheckAchievements evaluates every rule against the just-recorded weight and
// returns the achievements it persisted, in evaluation order. It must run
// after the triggering entry is stored. Rules that could not be evaluated are
// reported as *RuleError values joined into the returned error; the returned
// slice is valid either way.
func (s *AchievementService) CheckAchievements(ctx context.Context, userID int64, value float64, unit domain.Unit) ([]domain.Achievement, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	st := s.load(ctx, userID, value, unit)
	now := s.now()

	var (
		granted []domain.Achievement
		errs    []error
	)
	record := func(rule domain.AchievementType, err error) {
		s.metrics.RuleFailed(string(rule))
		s.log.WithFields(logrus.Fields{"user_id": userID, "rule": rule}).WithError(err).Warn("Achievement rule skipped")
		errs = append(errs, &RuleError{Rule: rule, Err: err})
	}
	try := func(rule domain.AchievementType, c *candidate, err error) *domain.Achievement {
		if err != nil {
			record(rule, err)
			return nil
		}
		if c == nil {
			return nil
		}
		c.ach.UserID = userID
		c.ach.AchievedAt = now
		c.ach.IsNotified = false
		ok, err := s.grant(ctx, c)
		if err != nil {
			record(rule, err)
			return nil
		}
		if !ok {
			return nil
		}
		s.metrics.Granted(string(c.ach.Type))
		s.log.WithFields(logrus.Fields{
			"user_id":        userID,
			"achievement_id": c.ach.ID,
			"type":           c.ach.Type,
		}).Info("Achievement granted")
		granted = append(granted, c.ach)
		return &granted[len(granted)-1]
	}

	c, err := firstEntryRule(st)
	try(domain.AchievementFirstEntry, c, err)

	c, err = goalReachedRule(st)
	if a := try(domain.AchievementGoalReached, c, err); a != nil {
		if err := s.goals.MarkGoalAchieved(ctx, *a.GoalID, now); err != nil {
			s.log.WithFields(logrus.Fields{"user_id": userID, "goal_id": *a.GoalID}).WithError(err).Error("Failed to mark goal achieved")
		}
	}

	for _, m := range milestoneThresholds {
		c, err := milestoneRule(st, m.Type, m.Amount)
		try(m.Type, c, err)
	}

	for _, rule := range []struct {
		t    domain.AchievementType
		days int
	}{
		{domain.AchievementStreak7, 7},
		{domain.AchievementStreak30, 30},
	} {
		c, err := streakRule(st, rule.t, rule.days)
		try(rule.t, c, err)
	}

	c, err = s.newLowRule(ctx, st)
	try(domain.AchievementNewLow, c, err)

	if granted == nil {
		granted = []domain.Achievement{}
	}
	return granted, errors.Join(errs...)
}

// ListAchievements returns the user's achievements, newest first.
func (s *AchievementService) ListAchievements(ctx context.Context, userID int64) ([]domain.Achievement, error) {
	list, err := s.repo.ListAchievements(ctx, userID)
	if err != nil {
		return nil, domain.NewStorageError("list achievements", err)
	}
	return list, nil
}

// ListByType returns the user's achievements of one type, newest first.
func (s *AchievementService) ListByType(ctx context.Context, userID int64, t domain.AchievementType) ([]domain.Achievement, error) {
	list, err := s.repo.ListAchievementsByType(ctx, userID, t)
	if err != nil {
		return nil, domain.NewStorageError("list achievements by type", err)
	}
	return list, nil
}

// lockUser acquires the user's lock and returns its release func.
func (s *AchievementService) lockUser(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// lockedUsers reports how many users currently have a lock entry.
func (s *AchievementService) lockedUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func (s *AchievementService) load(ctx context.Context, userID int64, value float64, unit domain.Unit) *checkState {
	st := &checkState{userID: userID, value: value, unit: unit}

	st.goal, st.goalErr = s.goals.ActiveGoal(ctx, userID)

	entries, err := s.weights.ListWeightEntries(ctx, userID)
	if err != nil {
		st.histErr = domain.NewStorageError("list weight entries", err)
	} else {
		st.entries = entries
		st.priors = withoutTrigger(entries)
	}

	if st.unit == "" {
		switch {
		case st.goal != nil:
			st.unit = st.goal.Unit
		default:
			st.unit = domain.UnitLbs
		}
	}
	return st
}

// withoutTrigger drops the most recently created entry, which is the one that
// triggered the check.
func withoutTrigger(entries []domain.WeightEntry) []domain.WeightEntry {
	if len(entries) == 0 {
		return nil
	}
	trigger := 0
	for i, e := range entries {
		t := entries[trigger]
		if e.CreatedAt.After(t.CreatedAt) || (e.CreatedAt.Equal(t.CreatedAt) && e.ID > t.ID) {
			trigger = i
		}
	}
	priors := make([]domain.WeightEntry, 0, len(entries)-1)
	priors = append(priors, entries[:trigger]...)
	return append(priors, entries[trigger+1:]...)
}

// grant persists c unless an equivalent achievement already exists. It reports
// whether a new record was written.
func (s *AchievementService) grant(ctx context.Context, c *candidate) (bool, error) {
	if c.unique {
		exists, err := s.repo.HasAchievement(ctx, c.ach.UserID, c.ach.Type, c.scope)
		if err != nil {
			return false, domain.NewStorageError("check achievement", err)
		}
		if exists {
			return false, nil
		}
	}
	id, err := s.repo.InsertAchievement(ctx, &c.ach)
	if errors.Is(err, domain.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewStorageError("insert achievement", err)
	}
	c.ach.ID = id
	return true, nil
}

func firstEntryRule(st *checkState) (*candidate, error) {
	if st.histErr != nil {
		return nil, st.histErr
	}
	if len(st.entries) == 0 || len(st.priors) > 0 {
		return nil, nil
	}
	return &candidate{
		unique: true,
		ach: domain.Achievement{
			Type:        domain.AchievementFirstEntry,
			Title:       "First Entry!",
			Description: "You've logged your first weight. Great start on your journey!",
		},
	}, nil
}

func goalReachedRule(st *checkState) (*candidate, error) {
	if st.goalErr != nil {
		return nil, st.goalErr
	}
	g := st.goal
	if g == nil {
		return nil, nil
	}
	if !g.Reached(domain.ConvertWeight(st.value, st.unit, g.Unit)) {
		return nil, nil
	}
	goalID := g.ID
	target := g.GoalWeight
	return &candidate{
		unique: true,
		scope:  &goalID,
		ach: domain.Achievement{
			GoalID:      &goalID,
			Type:        domain.AchievementGoalReached,
			Title:       "Goal Reached!",
			Description: "Congratulations! You've reached your goal weight of " + domain.FormatWeight(target, g.Unit),
			Value:       &target,
			Unit:        g.Unit,
		},
	}, nil
}

func milestoneRule(st *checkState, t domain.AchievementType, amount float64) (*candidate, error) {
	if st.goalErr != nil {
		return nil, st.goalErr
	}
	g := st.goal
	if g == nil {
		return nil, nil
	}
	current := domain.ConvertWeight(st.value, st.unit, g.Unit)
	progressed := current - g.StartWeight
	verb := "Gained"
	if g.IsLoss() {
		progressed = g.StartWeight - current
		verb = "Lost"
	}
	if progressed < amount {
		return nil, nil
	}
	goalID := g.ID
	threshold := amount
	return &candidate{
		unique: true,
		ach: domain.Achievement{
			GoalID:      &goalID,
			Type:        t,
			Title:       fmt.Sprintf("%g %s %s!", amount, g.Unit, verb),
			Description: fmt.Sprintf("You've %s %g %s! You're making great progress!", strings.ToLower(verb), amount, g.Unit),
			Value:       &threshold,
			Unit:        g.Unit,
		},
	}, nil
}

func streakRule(st *checkState, t domain.AchievementType, days int) (*candidate, error) {
	if st.histErr != nil {
		return nil, st.histErr
	}
	if domain.CurrentStreak(domain.EntryDates(st.entries)) < days {
		return nil, nil
	}
	n := float64(days)
	desc := fmt.Sprintf("You've logged your weight for %d consecutive days. Keep it up!", days)
	if days >= 30 {
		desc = fmt.Sprintf("Amazing! You've logged your weight for %d consecutive days!", days)
	}
	return &candidate{
		unique: true,
		ach: domain.Achievement{
			Type:        t,
			Title:       fmt.Sprintf("%d-Day Streak!", days),
			Description: desc,
			Value:       &n,
		},
	}, nil
}

// newLowRule grants NEW_LOW when value is below every prior entry. A value
// that does not beat the lowest NEW_LOW already granted is not granted again.
func (s *AchievementService) newLowRule(ctx context.Context, st *checkState) (*candidate, error) {
	if st.histErr != nil {
		return nil, st.histErr
	}
	if len(st.priors) == 0 {
		return nil, nil
	}
	newKg := domain.ConvertWeight(st.value, st.unit, domain.UnitKg)
	for _, p := range st.priors {
		if newKg >= domain.ConvertWeight(p.Value, p.Unit, domain.UnitKg) {
			return nil, nil
		}
	}

	previous, err := s.repo.ListAchievementsByType(ctx, st.userID, domain.AchievementNewLow)
	if err != nil {
		return nil, domain.NewStorageError("list achievements by type", err)
	}
	for _, a := range previous {
		if a.Value == nil {
			continue
		}
		u := a.Unit
		if u == "" {
			u = st.unit
		}
		if newKg >= domain.ConvertWeight(*a.Value, u, domain.UnitKg) {
			return nil, nil
		}
	}

	v := st.value
	var goalID *int64
	if st.goal != nil {
		id := st.goal.ID
		goalID = &id
	}
	return &candidate{
		ach: domain.Achievement{
			GoalID:      goalID,
			Type:        domain.AchievementNewLow,
			Title:       "New Low!",
			Description: fmt.Sprintf("You've reached a new lowest weight of %s!", domain.FormatWeight(v, st.unit)),
			Value:       &v,
			Unit:        st.unit,
		},
	}, nil
}
