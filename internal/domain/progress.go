package domain

import (
	"math"
	"time"
)

// minProjectablePace is the pace (units/week) below which a completion date is
// not projected.
const minProjectablePace = 0.01

// Progress summarises movement toward the active goal. Pointer fields are nil
// when the value is not available.
type Progress struct {
	Active              bool       `json:"active"`
	Unit                Unit       `json:"unit,omitempty"`
	StartWeight         float64    `json:"startWeight"`
	GoalWeight          float64    `json:"goalWeight"`
	CurrentWeight       float64    `json:"currentWeight"`
	Percent             int        `json:"percent"`
	DaysSinceStart      int        `json:"daysSinceStart"`
	Pace                *float64   `json:"pace,omitempty"`
	ProjectedCompletion *time.Time `json:"projectedCompletion,omitempty"`
	AverageWeeklyLoss   *float64   `json:"averageWeeklyLoss,omitempty"`
	TotalLost           float64    `json:"totalLost"`
	RemainingToGoal     float64    `json:"remainingToGoal"`
}

// CalculateProgress derives dashboard statistics from the active goal and the
// latest entry. A nil goal yields an inactive Progress. With no entry the
// current weight is the goal's start weight.
func CalculateProgress(goal *GoalWeight, latest *WeightEntry, today time.Time) Progress {
	if goal == nil {
		return Progress{}
	}

	current := goal.StartWeight
	if latest != nil {
		current = ConvertWeight(latest.Value, latest.Unit, goal.Unit)
	}

	p := Progress{
		Active:        true,
		Unit:          goal.Unit,
		StartWeight:   goal.StartWeight,
		GoalWeight:    goal.GoalWeight,
		CurrentWeight: current,
	}

	totalRange := math.Abs(goal.StartWeight - goal.GoalWeight)
	progressed := math.Abs(goal.StartWeight - current)
	remaining := math.Abs(current - goal.GoalWeight)

	p.Percent = ProgressPercent(progressed, totalRange)
	p.TotalLost = goal.StartWeight - current
	p.RemainingToGoal = remaining

	p.DaysSinceStart = DaysBetween(goal.CreatedAt, today)
	if p.DaysSinceStart <= 0 {
		return p
	}

	pace := progressed / float64(p.DaysSinceStart) * 7
	avg := -pace
	p.Pace = &pace
	p.AverageWeeklyLoss = &avg

	if pace > minProjectablePace {
		days := int(math.Round(remaining / pace * 7))
		projected := DayOf(today).AddDate(0, 0, days)
		p.ProjectedCompletion = &projected
	}
	return p
}

// ProgressPercent returns progressed/totalRange as a whole percentage clamped
// to [0, 100]. A zero range yields 0.
func ProgressPercent(progressed, totalRange float64) int {
	if totalRange == 0 {
		return 0
	}
	pct := math.Round(progressed / totalRange * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}
