package app

import (
	"context"
	"time"

	"weighttogo/internal/domain"
)

// maxTrendDays bounds Trend's window.
const maxTrendDays = 366

// recentAchievementsOnDashboard is how many achievements Dashboard includes.
const recentAchievementsOnDashboard = 5

// Dashboard is the read-only summary behind the main screen.
type Dashboard struct {
	Goal               *domain.GoalWeight   `json:"goal"`
	Latest             *domain.WeightEntry  `json:"latest"`
	Progress           domain.Progress      `json:"progress"`
	Streak             int                  `json:"streak"`
	RecentAchievements []domain.Achievement `json:"recentAchievements"`
}

// TrendPoint is a single day returned by Trend.
type TrendPoint struct {
	Day    string       `json:"day"`
	Weight *WeightPoint `json:"weight"`
}

// WeightPoint is the optional weight value within a TrendPoint.
type WeightPoint struct {
	Value float64     `json:"value"`
	Unit  domain.Unit `json:"unit"`
}

// ProgressService derives dashboard and chart data. It never writes.
type ProgressService struct {
	goals        *GoalService
	weights      domain.WeightRepository
	achievements domain.AchievementRepository
	now          func() time.Time
}

// NewProgressService creates a ProgressService.
func NewProgressService(goals *GoalService, weights domain.WeightRepository, achievements domain.AchievementRepository) *ProgressService {
	return &ProgressService{goals: goals, weights: weights, achievements: achievements, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *ProgressService) WithClock(now func() time.Time) *ProgressService {
	s.now = now
	return s
}

// Dashboard returns the active goal, the latest entry, progress toward the
// goal, the current logging streak and the most recent achievements.
func (s *ProgressService) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	goal, err := s.goals.ActiveGoal(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.weights.ListWeightEntries(ctx, userID)
	if err != nil {
		return nil, domain.NewStorageError("list weight entries", err)
	}
	var latest *domain.WeightEntry
	if len(entries) > 0 {
		latest = &entries[0]
	}

	achievements, err := s.achievements.ListAchievements(ctx, userID)
	if err != nil {
		return nil, domain.NewStorageError("list achievements", err)
	}
	if len(achievements) > recentAchievementsOnDashboard {
		achievements = achievements[:recentAchievementsOnDashboard]
	}

	return &Dashboard{
		Goal:               goal,
		Latest:             latest,
		Progress:           domain.CalculateProgress(goal, latest, s.now()),
		Streak:             domain.CurrentStreak(domain.EntryDates(entries)),
		RecentAchievements: achievements,
	}, nil
}

// Trend returns one point per day for the last days days, oldest first, with
// weights converted to unit. Days without an entry have a nil Weight.
func (s *ProgressService) Trend(ctx context.Context, userID int64, days int, unit domain.Unit) ([]TrendPoint, error) {
	unit, err := domain.ParseUnit(string(unit))
	if err != nil {
		return nil, err
	}
	if days < 1 {
		days = 1
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	entries, err := s.weights.ListWeightEntries(ctx, userID)
	if err != nil {
		return nil, domain.NewStorageError("list weight entries", err)
	}
	byDay := make(map[string]domain.WeightEntry, len(entries))
	for _, e := range entries {
		if _, seen := byDay[e.Day()]; !seen {
			byDay[e.Day()] = e
		}
	}

	today := domain.DayOf(s.now())
	points := make([]TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(domain.DayLayout)

		var wp *WeightPoint
		if e, ok := byDay[day]; ok {
			wp = &WeightPoint{
				Value: domain.RoundToOneDecimal(domain.ConvertWeight(e.Value, e.Unit, unit)),
				Unit:  unit,
			}
		}
		points = append(points, TrendPoint{Day: day, Weight: wp})
	}
	return points, nil
}
