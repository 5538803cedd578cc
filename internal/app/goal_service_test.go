package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighttogo/internal/adapter/memory"
	"weighttogo/internal/app"
	"weighttogo/internal/domain"
	"weighttogo/internal/logging"
)

var fixedNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type mockGoalRepo struct {
	insertFn     func(ctx context.Context, g *domain.GoalWeight) (int64, error)
	getFn        func(ctx context.Context, id int64) (*domain.GoalWeight, error)
	activeFn     func(ctx context.Context, userID int64) ([]domain.GoalWeight, error)
	listFn       func(ctx context.Context, userID int64) ([]domain.GoalWeight, error)
	updateFn     func(ctx context.Context, g *domain.GoalWeight) (int64, error)
	deactivateFn func(ctx context.Context, id int64) (int64, error)
	replaceFn    func(ctx context.Context, g *domain.GoalWeight) (int64, error)
}

func (m *mockGoalRepo) InsertGoal(ctx context.Context, g *domain.GoalWeight) (int64, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, g)
	}
	return 1, nil
}

func (m *mockGoalRepo) GetGoal(ctx context.Context, id int64) (*domain.GoalWeight, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockGoalRepo) ActiveGoals(ctx context.Context, userID int64) ([]domain.GoalWeight, error) {
	if m.activeFn != nil {
		return m.activeFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockGoalRepo) ListGoals(ctx context.Context, userID int64) ([]domain.GoalWeight, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockGoalRepo) UpdateGoal(ctx context.Context, g *domain.GoalWeight) (int64, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, g)
	}
	return 1, nil
}

func (m *mockGoalRepo) DeactivateGoal(ctx context.Context, id int64) (int64, error) {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return 0, nil
}

func (m *mockGoalRepo) DeactivateAllGoals(_ context.Context, _ int64) (int64, error) {
	return 0, nil
}

func (m *mockGoalRepo) ReplaceActiveGoal(ctx context.Context, g *domain.GoalWeight) (int64, error) {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, g)
	}
	return 1, nil
}

func newGoal(start, goal float64) *domain.GoalWeight {
	return &domain.GoalWeight{UserID: 1, StartWeight: start, GoalWeight: goal, Unit: domain.UnitLbs}
}

func TestValidateGoal(t *testing.T) {
	past := fixedNow.AddDate(0, 0, -1)
	future := fixedNow.AddDate(0, 1, 0)

	tests := []struct {
		name    string
		goal    *domain.GoalWeight
		wantErr bool
	}{
		{"valid loss goal", newGoal(180, 150), false},
		{"valid gain goal", newGoal(120, 130), false},
		{"nil goal", nil, true},
		{"bad unit", &domain.GoalWeight{StartWeight: 180, GoalWeight: 150, Unit: "stone"}, true},
		{"zero start", newGoal(0, 150), true},
		{"goal above max", newGoal(180, 800), true},
		{"no change", newGoal(180, 180.05), true},
		{"target in past", &domain.GoalWeight{StartWeight: 180, GoalWeight: 150, Unit: domain.UnitLbs, TargetDate: &past}, true},
		{"target in future", &domain.GoalWeight{StartWeight: 180, GoalWeight: 150, Unit: domain.UnitLbs, TargetDate: &future}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := app.ValidateGoal(tc.goal, fixedNow)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateGoal_StoresInactive(t *testing.T) {
	var stored *domain.GoalWeight
	repo := &mockGoalRepo{
		insertFn: func(_ context.Context, g *domain.GoalWeight) (int64, error) {
			stored = g
			return 7, nil
		},
		replaceFn: func(_ context.Context, _ *domain.GoalWeight) (int64, error) {
			t.Fatal("CreateGoal must not touch other goals")
			return 0, nil
		},
	}
	svc := app.NewGoalService(repo, logging.Discard(), nil).WithClock(clock)

	g := newGoal(180, 150)
	g.IsActive = true
	id, err := svc.CreateGoal(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	require.NotNil(t, stored)
	assert.False(t, stored.IsActive)
	assert.Equal(t, fixedNow, stored.CreatedAt)
}

func TestCreateGoal_StorageError(t *testing.T) {
	repo := &mockGoalRepo{
		insertFn: func(_ context.Context, _ *domain.GoalWeight) (int64, error) {
			return 0, errors.New("disk full")
		},
	}
	svc := app.NewGoalService(repo, logging.Discard(), nil).WithClock(clock)

	_, err := svc.CreateGoal(context.Background(), newGoal(180, 150))
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "insert goal", se.Op)
}

func TestActiveGoal(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		svc := app.NewGoalService(&mockGoalRepo{}, logging.Discard(), nil)
		g, err := svc.ActiveGoal(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, g)
	})

	t.Run("one", func(t *testing.T) {
		repo := &mockGoalRepo{activeFn: func(_ context.Context, _ int64) ([]domain.GoalWeight, error) {
			return []domain.GoalWeight{{ID: 3, IsActive: true}}, nil
		}}
		svc := app.NewGoalService(repo, logging.Discard(), nil)
		g, err := svc.ActiveGoal(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.Equal(t, int64(3), g.ID)
	})

	t.Run("two is an invariant violation", func(t *testing.T) {
		repo := &mockGoalRepo{activeFn: func(_ context.Context, _ int64) ([]domain.GoalWeight, error) {
			return []domain.GoalWeight{{ID: 3, IsActive: true}, {ID: 4, IsActive: true}}, nil
		}}
		svc := app.NewGoalService(repo, logging.Discard(), nil)
		g, err := svc.ActiveGoal(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
		assert.Nil(t, g)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mockGoalRepo{activeFn: func(_ context.Context, _ int64) ([]domain.GoalWeight, error) {
			return nil, errors.New("connection reset")
		}}
		svc := app.NewGoalService(repo, logging.Discard(), nil)
		_, err := svc.ActiveGoal(ctx, 1)
		var se *domain.StorageError
		assert.ErrorAs(t, err, &se)
	})
}

func TestSetNewActiveGoal_WrapsTransactionError(t *testing.T) {
	repo := &mockGoalRepo{
		replaceFn: func(_ context.Context, _ *domain.GoalWeight) (int64, error) {
			return 0, errors.New("serialization failure")
		},
	}
	svc := app.NewGoalService(repo, logging.Discard(), nil).WithClock(clock)

	_, err := svc.SetNewActiveGoal(context.Background(), newGoal(180, 150))
	var te *domain.TransactionError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "serialization failure")
}

func TestSetNewActiveGoal_ValidationSkipsStorage(t *testing.T) {
	repo := &mockGoalRepo{
		replaceFn: func(_ context.Context, _ *domain.GoalWeight) (int64, error) {
			t.Fatal("invalid goal must not reach storage")
			return 0, nil
		},
	}
	svc := app.NewGoalService(repo, logging.Discard(), nil).WithClock(clock)

	_, err := svc.SetNewActiveGoal(context.Background(), newGoal(180, 180))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSetNewActiveGoal_ReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	svc := app.NewGoalService(memory.New(), logging.Discard(), nil).WithClock(clock)

	firstID, err := svc.SetNewActiveGoal(ctx, newGoal(180, 170))
	require.NoError(t, err)
	secondID, err := svc.SetNewActiveGoal(ctx, newGoal(175, 160))
	require.NoError(t, err)

	active, err := svc.ActiveGoal(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, secondID, active.ID)

	history, err := svc.GoalHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, secondID, history[0].ID)
	assert.Equal(t, firstID, history[1].ID)
	assert.False(t, history[1].IsActive)
}

func TestGoalOperations_KeepAtMostOneActive(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := app.NewGoalService(db, logging.Discard(), nil).WithClock(clock)

	ops := []func() error{
		func() error { _, err := svc.CreateGoal(ctx, newGoal(180, 170)); return err },
		func() error { _, err := svc.SetNewActiveGoal(ctx, newGoal(180, 165)); return err },
		func() error { _, err := svc.CreateGoal(ctx, newGoal(170, 160)); return err },
		func() error { _, err := svc.SetNewActiveGoal(ctx, newGoal(178, 160)); return err },
		func() error { _, err := svc.DeactivateGoal(ctx, 4); return err },
		func() error { _, err := svc.SetNewActiveGoal(ctx, newGoal(176, 160)); return err },
		func() error { _, err := svc.DeactivateAllGoals(ctx, 1); return err },
		func() error { _, err := svc.SetNewActiveGoal(ctx, newGoal(175, 160)); return err },
	}
	for i, op := range ops {
		require.NoError(t, op(), "op %d", i)
		active, err := db.ActiveGoals(ctx, 1)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(active), 1, "after op %d", i)
	}
}

func TestGoalHistory_NewestFirst(t *testing.T) {
	repo := &mockGoalRepo{listFn: func(_ context.Context, _ int64) ([]domain.GoalWeight, error) {
		return []domain.GoalWeight{
			{ID: 1, CreatedAt: fixedNow.AddDate(0, -2, 0)},
			{ID: 3, CreatedAt: fixedNow},
			{ID: 2, CreatedAt: fixedNow},
		}, nil
	}}
	svc := app.NewGoalService(repo, logging.Discard(), nil)

	history, err := svc.GoalHistory(context.Background(), 1)
	require.NoError(t, err)
	ids := []int64{history[0].ID, history[1].ID, history[2].ID}
	assert.Equal(t, []int64{3, 2, 1}, ids)
}

func TestMarkGoalAchieved_Idempotent(t *testing.T) {
	goal := &domain.GoalWeight{ID: 5, UserID: 1, StartWeight: 180, GoalWeight: 170, Unit: domain.UnitLbs, IsActive: true}
	updates := 0
	repo := &mockGoalRepo{
		getFn: func(_ context.Context, _ int64) (*domain.GoalWeight, error) {
			out := *goal
			return &out, nil
		},
		updateFn: func(_ context.Context, g *domain.GoalWeight) (int64, error) {
			updates++
			*goal = *g
			return 1, nil
		},
	}
	svc := app.NewGoalService(repo, logging.Discard(), nil).WithClock(clock)

	require.NoError(t, svc.MarkGoalAchieved(context.Background(), 5, fixedNow))
	require.NoError(t, svc.MarkGoalAchieved(context.Background(), 5, fixedNow.AddDate(0, 0, 3)))

	assert.Equal(t, 1, updates)
	assert.True(t, goal.IsAchieved)
	require.NotNil(t, goal.AchievedDate)
	assert.Equal(t, "2026-03-15", goal.AchievedDate.Format(domain.DayLayout))
}

func TestGetGoal_NotFound(t *testing.T) {
	svc := app.NewGoalService(&mockGoalRepo{}, logging.Discard(), nil)
	_, err := svc.GetGoal(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
