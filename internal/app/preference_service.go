package app

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"weighttogo/internal/domain"
)

// Preferences is the full set of per-user settings.
type Preferences struct {
	WeightUnit      domain.Unit `json:"weightUnit"`
	GoalAlerts      bool        `json:"goalAlerts"`
	MilestoneAlerts bool        `json:"milestoneAlerts"`
}

// DefaultPreferences applies to users who never changed a setting.
var DefaultPreferences = Preferences{
	WeightUnit:      domain.UnitLbs,
	GoalAlerts:      true,
	MilestoneAlerts: true,
}

// PreferenceService reads and writes per-user settings stored as key/value
// pairs.
type PreferenceService struct {
	repo domain.PreferenceRepository
	log  *logrus.Logger
}

// NewPreferenceService creates a PreferenceService.
func NewPreferenceService(repo domain.PreferenceRepository, log *logrus.Logger) *PreferenceService {
	return &PreferenceService{repo: repo, log: log}
}

// WeightUnit returns the user's display unit. A stored value that no longer
// parses falls back to lbs.
func (s *PreferenceService) WeightUnit(ctx context.Context, userID int64) (domain.Unit, error) {
	raw, err := s.repo.GetPreference(ctx, userID, domain.PrefWeightUnit, string(DefaultPreferences.WeightUnit))
	if err != nil {
		return "", domain.NewStorageError("get preference", err)
	}
	u, err := domain.ParseUnit(raw)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "value": raw}).Warn("Ignoring stored weight unit")
		return DefaultPreferences.WeightUnit, nil
	}
	return u, nil
}

// SetWeightUnit stores the user's display unit.
func (s *PreferenceService) SetWeightUnit(ctx context.Context, userID int64, u domain.Unit) error {
	u, err := domain.ParseUnit(string(u))
	if err != nil {
		return err
	}
	if err := s.repo.SetPreference(ctx, userID, domain.PrefWeightUnit, string(u)); err != nil {
		return domain.NewStorageError("set preference", err)
	}
	return nil
}

// GoalAlerts reports whether GOAL_REACHED notifications are enabled.
func (s *PreferenceService) GoalAlerts(ctx context.Context, userID int64) (bool, error) {
	return s.flag(ctx, userID, domain.PrefGoalAlerts, DefaultPreferences.GoalAlerts)
}

// MilestoneAlerts reports whether MILESTONE_* notifications are enabled.
func (s *PreferenceService) MilestoneAlerts(ctx context.Context, userID int64) (bool, error) {
	return s.flag(ctx, userID, domain.PrefMilestoneAlerts, DefaultPreferences.MilestoneAlerts)
}

// SetGoalAlerts toggles GOAL_REACHED notifications.
func (s *PreferenceService) SetGoalAlerts(ctx context.Context, userID int64, on bool) error {
	return s.setFlag(ctx, userID, domain.PrefGoalAlerts, on)
}

// SetMilestoneAlerts toggles MILESTONE_* notifications.
func (s *PreferenceService) SetMilestoneAlerts(ctx context.Context, userID int64, on bool) error {
	return s.setFlag(ctx, userID, domain.PrefMilestoneAlerts, on)
}

// Get returns all settings for the user.
func (s *PreferenceService) Get(ctx context.Context, userID int64) (Preferences, error) {
	var p Preferences
	var err error
	if p.WeightUnit, err = s.WeightUnit(ctx, userID); err != nil {
		return Preferences{}, err
	}
	if p.GoalAlerts, err = s.GoalAlerts(ctx, userID); err != nil {
		return Preferences{}, err
	}
	if p.MilestoneAlerts, err = s.MilestoneAlerts(ctx, userID); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Update stores all settings for the user. The unit is validated before
// anything is written.
func (s *PreferenceService) Update(ctx context.Context, userID int64, p Preferences) error {
	if _, err := domain.ParseUnit(string(p.WeightUnit)); err != nil {
		return err
	}
	if err := s.SetWeightUnit(ctx, userID, p.WeightUnit); err != nil {
		return err
	}
	if err := s.SetGoalAlerts(ctx, userID, p.GoalAlerts); err != nil {
		return err
	}
	return s.SetMilestoneAlerts(ctx, userID, p.MilestoneAlerts)
}

func (s *PreferenceService) flag(ctx context.Context, userID int64, key string, fallback bool) (bool, error) {
	raw, err := s.repo.GetPreference(ctx, userID, key, strconv.FormatBool(fallback))
	if err != nil {
		return false, domain.NewStorageError("get preference", err)
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, nil
	}
	return on, nil
}

func (s *PreferenceService) setFlag(ctx context.Context, userID int64, key string, on bool) error {
	if err := s.repo.SetPreference(ctx, userID, key, strconv.FormatBool(on)); err != nil {
		return domain.NewStorageError("set preference", err)
	}
	return nil
}
