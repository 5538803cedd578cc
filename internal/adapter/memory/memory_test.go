package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"weighttogo/internal/domain"
)

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestWeightRepository(t *testing.T) {
	db := New()
	ctx := context.Background()
	userID := int64(1)

	now := time.Now().UTC()
	id, err := db.InsertWeightEntry(ctx, &domain.WeightEntry{
		UserID: userID, Value: 180, Unit: domain.UnitLbs, Date: day("2026-03-14"), CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("InsertWeightEntry: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero ID")
	}
	if _, err := db.InsertWeightEntry(ctx, &domain.WeightEntry{
		UserID: userID, Value: 179, Unit: domain.UnitLbs, Date: day("2026-03-15"), CreatedAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("InsertWeightEntry: %v", err)
	}

	// Same user and date is a duplicate
	_, err = db.InsertWeightEntry(ctx, &domain.WeightEntry{
		UserID: userID, Value: 178, Unit: domain.UnitLbs, Date: day("2026-03-15"),
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	entries, err := db.ListWeightEntries(ctx, userID)
	if err != nil {
		t.Fatalf("ListWeightEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Value != 179 {
		t.Errorf("expected newest first, got %v", entries[0].Value)
	}

	latest, err := db.LatestWeightEntry(ctx, userID)
	if err != nil || latest == nil {
		t.Fatalf("LatestWeightEntry: %v %v", latest, err)
	}
	if latest.Value != 179 {
		t.Errorf("expected 179, got %v", latest.Value)
	}

	recent, _ := db.ListRecentWeightEntries(ctx, userID, 1)
	if len(recent) != 1 {
		t.Errorf("expected 1 recent entry, got %d", len(recent))
	}

	// Other user sees nothing
	other, _ := db.ListWeightEntries(ctx, 999)
	if len(other) != 0 {
		t.Error("expected 0 entries for other user")
	}

	// Soft delete hides from lists but keeps the row
	n, err := db.SoftDeleteWeightEntry(ctx, userID, latest.ID)
	if err != nil || n != 1 {
		t.Fatalf("SoftDeleteWeightEntry: %d %v", n, err)
	}
	entries, _ = db.ListWeightEntries(ctx, userID)
	if len(entries) != 1 {
		t.Errorf("expected 1 live entry, got %d", len(entries))
	}
	got, err := db.GetWeightEntry(ctx, latest.ID)
	if err != nil {
		t.Fatalf("GetWeightEntry: %v", err)
	}
	if !got.Deleted {
		t.Error("expected entry to be flagged deleted")
	}

	// The date is free again after the soft delete
	if _, err := db.InsertWeightEntry(ctx, &domain.WeightEntry{
		UserID: userID, Value: 177, Unit: domain.UnitLbs, Date: day("2026-03-15"),
	}); err != nil {
		t.Errorf("expected re-insert after delete, got %v", err)
	}

	if _, err := db.GetWeightEntry(ctx, 12345); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateWeightEntry(t *testing.T) {
	db := New()
	ctx := context.Background()

	id, _ := db.InsertWeightEntry(ctx, &domain.WeightEntry{UserID: 1, Value: 80, Unit: domain.UnitKg, Date: day("2026-03-10")})
	_, _ = db.InsertWeightEntry(ctx, &domain.WeightEntry{UserID: 1, Value: 79, Unit: domain.UnitKg, Date: day("2026-03-11")})

	n, err := db.UpdateWeightEntry(ctx, &domain.WeightEntry{ID: id, UserID: 1, Value: 81, Unit: domain.UnitKg, Date: day("2026-03-10"), Notes: "after dinner"})
	if err != nil || n != 1 {
		t.Fatalf("UpdateWeightEntry: %d %v", n, err)
	}
	got, _ := db.GetWeightEntry(ctx, id)
	if got.Value != 81 || got.Notes != "after dinner" {
		t.Errorf("update not applied: %+v", got)
	}

	// Moving onto an occupied date is rejected
	_, err = db.UpdateWeightEntry(ctx, &domain.WeightEntry{ID: id, UserID: 1, Value: 81, Unit: domain.UnitKg, Date: day("2026-03-11")})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Another user's entry is not touched
	n, _ = db.UpdateWeightEntry(ctx, &domain.WeightEntry{ID: id, UserID: 2, Value: 1, Unit: domain.UnitKg, Date: day("2026-03-12")})
	if n != 0 {
		t.Errorf("expected 0 rows, got %d", n)
	}
}

func TestUpdateWeightEntry_UnknownIDOnTakenDate(t *testing.T) {
	db := New()
	ctx := context.Background()

	if _, err := db.InsertWeightEntry(ctx, &domain.WeightEntry{UserID: 1, Value: 190, Unit: domain.UnitLbs, Date: day("2026-03-01")}); err != nil {
		t.Fatalf("InsertWeightEntry: %v", err)
	}

	n, err := db.UpdateWeightEntry(ctx, &domain.WeightEntry{ID: 999, UserID: 1, Value: 189, Unit: domain.UnitLbs, Date: day("2026-03-01")})
	if err != nil {
		t.Fatalf("expected no error for an unknown id, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows, got %d", n)
	}
}

func TestGoalRepository_OneActivePerUser(t *testing.T) {
	db := New()
	ctx := context.Background()

	first := &domain.GoalWeight{UserID: 1, StartWeight: 180, GoalWeight: 170, Unit: domain.UnitLbs, IsActive: true}
	firstID, err := db.InsertGoal(ctx, first)
	if err != nil {
		t.Fatalf("InsertGoal: %v", err)
	}

	_, err = db.InsertGoal(ctx, &domain.GoalWeight{UserID: 1, StartWeight: 175, GoalWeight: 165, Unit: domain.UnitLbs, IsActive: true})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second active goal, got %v", err)
	}

	// Inactive goals and other users are unaffected
	if _, err := db.InsertGoal(ctx, &domain.GoalWeight{UserID: 1, StartWeight: 175, GoalWeight: 165, Unit: domain.UnitLbs}); err != nil {
		t.Errorf("inactive insert: %v", err)
	}
	if _, err := db.InsertGoal(ctx, &domain.GoalWeight{UserID: 2, StartWeight: 175, GoalWeight: 165, Unit: domain.UnitLbs, IsActive: true}); err != nil {
		t.Errorf("other user insert: %v", err)
	}

	newID, err := db.ReplaceActiveGoal(ctx, &domain.GoalWeight{UserID: 1, StartWeight: 172, GoalWeight: 160, Unit: domain.UnitLbs})
	if err != nil {
		t.Fatalf("ReplaceActiveGoal: %v", err)
	}

	active, _ := db.ActiveGoals(ctx, 1)
	if len(active) != 1 || active[0].ID != newID {
		t.Fatalf("expected only goal %d active, got %+v", newID, active)
	}
	old, _ := db.GetGoal(ctx, firstID)
	if old.IsActive {
		t.Error("expected previous goal to be inactive")
	}

	history, _ := db.ListGoals(ctx, 1)
	if len(history) != 3 || history[0].ID != newID {
		t.Errorf("expected 3 goals newest first, got %+v", history)
	}
}

func TestReplaceActiveGoal_RollsBack(t *testing.T) {
	db := New()
	ctx := context.Background()

	id, _ := db.InsertGoal(ctx, &domain.GoalWeight{UserID: 1, StartWeight: 180, GoalWeight: 170, Unit: domain.UnitLbs, IsActive: true})

	_, err := db.ReplaceActiveGoal(ctx, &domain.GoalWeight{UserID: 1, StartWeight: 180, GoalWeight: 170, Unit: "stone"})
	var te *domain.TransactionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransactionError, got %v", err)
	}

	active, _ := db.ActiveGoals(ctx, 1)
	if len(active) != 1 || active[0].ID != id {
		t.Fatalf("expected original goal still active, got %+v", active)
	}
	goals, _ := db.ListGoals(ctx, 1)
	if len(goals) != 1 {
		t.Errorf("expected no partial insert, got %d goals", len(goals))
	}
}

func TestGoalRepository_Deactivate(t *testing.T) {
	db := New()
	ctx := context.Background()

	id, _ := db.InsertGoal(ctx, &domain.GoalWeight{UserID: 1, StartWeight: 180, GoalWeight: 170, Unit: domain.UnitLbs, IsActive: true})

	n, _ := db.DeactivateGoal(ctx, id)
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
	n, _ = db.DeactivateGoal(ctx, id)
	if n != 0 {
		t.Errorf("expected 0 rows on second call, got %d", n)
	}
	n, _ = db.DeactivateAllGoals(ctx, 1)
	if n != 0 {
		t.Errorf("expected 0 rows, got %d", n)
	}
	if _, err := db.GetGoal(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAchievementRepository_Uniqueness(t *testing.T) {
	db := New()
	ctx := context.Background()
	goalA, goalB := int64(1), int64(2)

	if _, err := db.InsertAchievement(ctx, &domain.Achievement{UserID: 1, Type: domain.AchievementFirstEntry}); err != nil {
		t.Fatalf("InsertAchievement: %v", err)
	}
	_, err := db.InsertAchievement(ctx, &domain.Achievement{UserID: 1, Type: domain.AchievementFirstEntry})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for FIRST_ENTRY, got %v", err)
	}

	if _, err := db.InsertAchievement(ctx, &domain.Achievement{UserID: 1, Type: domain.AchievementGoalReached, GoalID: &goalA}); err != nil {
		t.Fatalf("InsertAchievement: %v", err)
	}
	_, err = db.InsertAchievement(ctx, &domain.Achievement{UserID: 1, Type: domain.AchievementGoalReached, GoalID: &goalA})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for same goal, got %v", err)
	}
	if _, err := db.InsertAchievement(ctx, &domain.Achievement{UserID: 1, Type: domain.AchievementGoalReached, GoalID: &goalB}); err != nil {
		t.Errorf("expected new goal to be eligible, got %v", err)
	}

	// NEW_LOW may repeat
	for i := 0; i < 2; i++ {
		if _, err := db.InsertAchievement(ctx, &domain.Achievement{UserID: 1, Type: domain.AchievementNewLow}); err != nil {
			t.Errorf("NEW_LOW insert %d: %v", i, err)
		}
	}

	has, _ := db.HasAchievement(ctx, 1, domain.AchievementGoalReached, &goalB)
	if !has {
		t.Error("expected GOAL_REACHED for goal B")
	}
	goalC := int64(3)
	has, _ = db.HasAchievement(ctx, 1, domain.AchievementGoalReached, &goalC)
	if has {
		t.Error("expected no GOAL_REACHED for goal C")
	}
	has, _ = db.HasAchievement(ctx, 2, domain.AchievementFirstEntry, nil)
	if has {
		t.Error("achievements must be scoped per user")
	}

	all, _ := db.ListAchievements(ctx, 1)
	if len(all) != 5 {
		t.Errorf("expected 5 achievements, got %d", len(all))
	}
	lows, _ := db.ListAchievementsByType(ctx, 1, domain.AchievementNewLow)
	if len(lows) != 2 {
		t.Errorf("expected 2 NEW_LOW, got %d", len(lows))
	}

	pending, _ := db.ListUnnotifiedAchievements(ctx, 1)
	if len(pending) != 5 {
		t.Fatalf("expected 5 pending, got %d", len(pending))
	}
	n, _ := db.SetAchievementNotified(ctx, pending[0].ID, true)
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
	pending, _ = db.ListUnnotifiedAchievements(ctx, 1)
	if len(pending) != 4 {
		t.Errorf("expected 4 pending, got %d", len(pending))
	}
}

func TestPreferenceRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	v, err := db.GetPreference(ctx, 1, domain.PrefWeightUnit, "lbs")
	if err != nil || v != "lbs" {
		t.Fatalf("expected fallback, got %q %v", v, err)
	}
	if err := db.SetPreference(ctx, 1, domain.PrefWeightUnit, "kg"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	v, _ = db.GetPreference(ctx, 1, domain.PrefWeightUnit, "lbs")
	if v != "kg" {
		t.Errorf("expected kg, got %q", v)
	}
	v, _ = db.GetPreference(ctx, 2, domain.PrefWeightUnit, "lbs")
	if v != "lbs" {
		t.Errorf("expected other user to see fallback, got %q", v)
	}
}

func TestAuthRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	count, _ := db.Count(ctx)
	if count != 0 {
		t.Errorf("expected 0 users, got %d", count)
	}

	u, err := db.Create(ctx, "testuser", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if _, err := db.Create(ctx, "testuser", "hash"); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	u2, err := db.GetByUsername(ctx, "testuser")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u2.ID != u.ID {
		t.Error("ID mismatch")
	}
	if _, err := db.GetByUsername(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.GetByID(ctx, u.ID); err != nil {
		t.Errorf("GetByID: %v", err)
	}

	sessions := db.NewSessionRepo()
	live := &domain.Session{Token: "token", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}
	stale := &domain.Session{Token: "stale", UserID: u.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	if err := sessions.Create(ctx, live); err != nil {
		t.Fatalf("Create session: %v", err)
	}
	_ = sessions.Create(ctx, stale)

	s, err := sessions.GetByToken(ctx, "token")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if s.UserID != u.ID {
		t.Error("UserID mismatch")
	}

	n, _ := sessions.DeleteExpired(ctx, time.Now())
	if n != 1 {
		t.Errorf("expected 1 expired session, got %d", n)
	}

	_ = sessions.Delete(ctx, "token")
	if _, err := sessions.GetByToken(ctx, "token"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
