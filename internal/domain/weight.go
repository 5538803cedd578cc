package domain

import (
	"context"
	"time"
)

// WeightEntry represents a single weight measurement. At most one non-deleted
// entry exists per user and calendar date.
type WeightEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Value     float64   `json:"value"`
	Unit      Unit      `json:"unit"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Deleted   bool      `json:"-"`
}

// Day returns the entry date formatted as "2006-01-02".
func (e WeightEntry) Day() string {
	return e.Date.Format(DayLayout)
}

// WeightRepository is the port for weight persistence. List and latest lookups
// never return soft-deleted entries.
type WeightRepository interface {
	InsertWeightEntry(ctx context.Context, e *WeightEntry) (int64, error)
	GetWeightEntry(ctx context.Context, id int64) (*WeightEntry, error)
	LatestWeightEntry(ctx context.Context, userID int64) (*WeightEntry, error)
	// ListWeightEntries returns non-deleted entries, newest date first.
	ListWeightEntries(ctx context.Context, userID int64) ([]WeightEntry, error)
	ListRecentWeightEntries(ctx context.Context, userID int64, limit int) ([]WeightEntry, error)
	UpdateWeightEntry(ctx context.Context, e *WeightEntry) (int64, error)
	SoftDeleteWeightEntry(ctx context.Context, userID, id int64) (int64, error)
}
