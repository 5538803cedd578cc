package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"weighttogo/internal/domain"
)

// WeightService encapsulates weight-tracking use cases.
type WeightService struct {
	repo          domain.WeightRepository
	achievements  *AchievementService
	notifications *NotificationService
	log           *logrus.Logger
	now           func() time.Time
}

// NewWeightService creates a WeightService backed by the given repository.
// achievements and notifications may be nil, in which case recording a weight
// only stores it.
func NewWeightService(
	repo domain.WeightRepository,
	achievements *AchievementService,
	notifications *NotificationService,
	log *logrus.Logger,
) *WeightService {
	return &WeightService{
		repo:          repo,
		achievements:  achievements,
		notifications: notifications,
		log:           log,
		now:           time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *WeightService) WithClock(now func() time.Time) *WeightService {
	s.now = now
	return s
}

func (s *WeightService) validate(value float64, unit domain.Unit, date time.Time) error {
	if !unit.Valid() {
		return fmt.Errorf("%w: unit must be \"lbs\" or \"kg\"", domain.ErrInvalidInput)
	}
	if !domain.ValidWeight(value, unit) {
		return fmt.Errorf("%w: weight %v %s out of range", domain.ErrInvalidInput, value, unit)
	}
	if domain.DayOf(date).After(domain.DayOf(s.now())) {
		return fmt.Errorf("%w: date cannot be in the future", domain.ErrInvalidInput)
	}
	return nil
}

// RecordWeight validates and stores a new weight measurement, then runs the
// achievement check and hands whatever was earned to the notifier. A zero date
// means today. Achievement and notification failures are logged and never
// fail the save.
func (s *WeightService) RecordWeight(ctx context.Context, userID int64, value float64, unit domain.Unit, date time.Time, notes string) (*domain.WeightEntry, []domain.Achievement, error) {
	now := s.now()
	if date.IsZero() {
		date = now
	}
	if err := s.validate(value, unit, date); err != nil {
		return nil, nil, err
	}

	entry := &domain.WeightEntry{
		UserID:    userID,
		Value:     value,
		Unit:      unit,
		Date:      domain.DayOf(date),
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.repo.InsertWeightEntry(ctx, entry)
	if err != nil {
		return nil, nil, domain.NewStorageError("insert weight entry", err)
	}
	entry.ID = id

	fields := logrus.Fields{"user_id": userID, "entry_id": id}
	s.log.WithFields(fields).Info("Weight recorded")

	earned := []domain.Achievement{}
	if s.achievements != nil {
		got, err := s.achievements.CheckAchievements(ctx, userID, value, unit)
		if err != nil {
			s.log.WithFields(fields).WithError(err).Warn("Achievement check incomplete")
		}
		earned = got
	}
	if s.notifications != nil && len(earned) > 0 {
		if _, err := s.notifications.Dispatch(ctx, userID, earned); err != nil {
			s.log.WithFields(fields).WithError(err).Warn("Achievement notification failed")
		}
	}
	return entry, earned, nil
}

// UpdateEntry rewrites a live entry owned by userID. It does not re-run the
// achievement check; granted achievements are never revoked.
func (s *WeightService) UpdateEntry(ctx context.Context, userID, id int64, value float64, unit domain.Unit, date time.Time, notes string) (*domain.WeightEntry, error) {
	if err := s.validate(value, unit, date); err != nil {
		return nil, err
	}
	entry := &domain.WeightEntry{
		ID:        id,
		UserID:    userID,
		Value:     value,
		Unit:      unit,
		Date:      domain.DayOf(date),
		Notes:     notes,
		UpdatedAt: s.now(),
	}
	n, err := s.repo.UpdateWeightEntry(ctx, entry)
	if err != nil {
		return nil, domain.NewStorageError("update weight entry", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("weight entry %d: %w", id, domain.ErrNotFound)
	}
	return s.repo.GetWeightEntry(ctx, id)
}

// DeleteEntry soft-deletes an entry owned by userID.
func (s *WeightService) DeleteEntry(ctx context.Context, userID, id int64) error {
	n, err := s.repo.SoftDeleteWeightEntry(ctx, userID, id)
	if err != nil {
		return domain.NewStorageError("delete weight entry", err)
	}
	if n == 0 {
		return fmt.Errorf("weight entry %d: %w", id, domain.ErrNotFound)
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "entry_id": id}).Info("Weight entry deleted")
	return nil
}

// ListRecent returns the most recent weight entries up to limit.
func (s *WeightService) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.WeightEntry, error) {
	entries, err := s.repo.ListRecentWeightEntries(ctx, userID, limit)
	if err != nil {
		return nil, domain.NewStorageError("list weight entries", err)
	}
	return entries, nil
}

// Latest returns the entry with the most recent date, or nil.
func (s *WeightService) Latest(ctx context.Context, userID int64) (*domain.WeightEntry, error) {
	e, err := s.repo.LatestWeightEntry(ctx, userID)
	if err != nil {
		return nil, domain.NewStorageError("latest weight entry", err)
	}
	return e, nil
}
