package domain

import "context"

// Preference keys.
const (
	PrefWeightUnit      = "weight_unit"
	PrefGoalAlerts      = "goal_alerts"
	PrefMilestoneAlerts = "milestone_alerts"
)

// PreferenceRepository is the port for per-user key/value settings.
type PreferenceRepository interface {
	// GetPreference returns fallback when the key has never been set.
	GetPreference(ctx context.Context, userID int64, key, fallback string) (string, error)
	SetPreference(ctx context.Context, userID int64, key, value string) error
}
