// Package memory implements the domain repositories in process memory for
// development and tests. It enforces the same uniqueness rules as the
// PostgreSQL schema.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"weighttogo/internal/domain"
)

type prefKey struct {
	userID int64
	key    string
}

// DB implements an in-memory database storage.
type DB struct {
	mu           sync.Mutex
	weights      []domain.WeightEntry
	goals        []domain.GoalWeight
	achievements []domain.Achievement
	prefs        map[prefKey]string
	users        []*domain.User
	sessions     map[string]*domain.Session

	weightSeq      int64
	goalSeq        int64
	achievementSeq int64
	userSeq        int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		prefs:    make(map[prefKey]string),
		sessions: make(map[string]*domain.Session),
	}
}

var (
	_ domain.WeightRepository      = (*DB)(nil)
	_ domain.GoalRepository        = (*DB)(nil)
	_ domain.AchievementRepository = (*DB)(nil)
	_ domain.PreferenceRepository  = (*DB)(nil)
	_ domain.UserRepository        = (*DB)(nil)
	_ domain.SessionRepository     = (*SessionRepo)(nil)
)

// --- WeightRepository ---

// InsertWeightEntry stores e. A second live entry for the same user and date
// is rejected with ErrDuplicate.
func (db *DB) InsertWeightEntry(_ context.Context, e *domain.WeightEntry) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	day := domain.DayOf(e.Date)
	for _, w := range db.weights {
		if w.UserID == e.UserID && !w.Deleted && w.Date.Equal(day) {
			return 0, fmt.Errorf("weight entry for %s: %w", day.Format(domain.DayLayout), domain.ErrDuplicate)
		}
	}

	db.weightSeq++
	stored := *e
	stored.ID = db.weightSeq
	stored.Date = day
	stored.Deleted = false
	db.weights = append(db.weights, stored)
	return stored.ID, nil
}

// GetWeightEntry returns an entry by id, including soft-deleted ones.
func (db *DB) GetWeightEntry(_ context.Context, id int64) (*domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, w := range db.weights {
		if w.ID == id {
			out := w
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// LatestWeightEntry returns the live entry with the most recent date, or nil.
func (db *DB) LatestWeightEntry(_ context.Context, userID int64) (*domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	live := db.liveWeights(userID)
	if len(live) == 0 {
		return nil, nil
	}
	return &live[0], nil
}

// ListWeightEntries returns live entries, newest date first.
func (db *DB) ListWeightEntries(_ context.Context, userID int64) ([]domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.liveWeights(userID), nil
}

// ListRecentWeightEntries is ListWeightEntries capped at limit.
func (db *DB) ListRecentWeightEntries(_ context.Context, userID int64, limit int) ([]domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	live := db.liveWeights(userID)
	if limit > 0 && len(live) > limit {
		live = live[:limit]
	}
	return live, nil
}

// UpdateWeightEntry rewrites value, unit, date and notes of a live entry.
func (db *DB) UpdateWeightEntry(_ context.Context, e *domain.WeightEntry) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	day := domain.DayOf(e.Date)
	idx := -1
	for i, w := range db.weights {
		if w.ID == e.ID && w.UserID == e.UserID && !w.Deleted {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, nil
	}
	for i, w := range db.weights {
		if i != idx && w.UserID == e.UserID && !w.Deleted && w.Date.Equal(day) {
			return 0, fmt.Errorf("weight entry for %s: %w", day.Format(domain.DayLayout), domain.ErrDuplicate)
		}
	}
	w := &db.weights[idx]
	w.Value = e.Value
	w.Unit = e.Unit
	w.Date = day
	w.Notes = e.Notes
	w.UpdatedAt = e.UpdatedAt
	return 1, nil
}

// SoftDeleteWeightEntry flags an entry deleted; it stays retrievable by id.
func (db *DB) SoftDeleteWeightEntry(_ context.Context, userID, id int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.weights {
		w := &db.weights[i]
		if w.ID == id && w.UserID == userID && !w.Deleted {
			w.Deleted = true
			w.UpdatedAt = time.Now().UTC()
			return 1, nil
		}
	}
	return 0, nil
}

func (db *DB) liveWeights(userID int64) []domain.WeightEntry {
	out := make([]domain.WeightEntry, 0)
	for _, w := range db.weights {
		if w.UserID == userID && !w.Deleted {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// --- GoalRepository ---

// InsertGoal stores g. An active goal for a user who already has one is
// rejected with ErrDuplicate.
func (db *DB) InsertGoal(_ context.Context, g *domain.GoalWeight) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertGoal(g)
}

func (db *DB) insertGoal(g *domain.GoalWeight) (int64, error) {
	if !g.Unit.Valid() {
		return 0, fmt.Errorf("goal unit %q not allowed", g.Unit)
	}
	if g.IsActive {
		for _, existing := range db.goals {
			if existing.UserID == g.UserID && existing.IsActive {
				return 0, fmt.Errorf("active goal for user %d: %w", g.UserID, domain.ErrDuplicate)
			}
		}
	}
	db.goalSeq++
	stored := *g
	stored.ID = db.goalSeq
	db.goals = append(db.goals, stored)
	return stored.ID, nil
}

// GetGoal returns a goal by id.
func (db *DB) GetGoal(_ context.Context, id int64) (*domain.GoalWeight, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, g := range db.goals {
		if g.ID == id {
			out := g
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ActiveGoals returns the user's goals flagged active.
func (db *DB) ActiveGoals(_ context.Context, userID int64) ([]domain.GoalWeight, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.GoalWeight
	for _, g := range db.goals {
		if g.UserID == userID && g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

// ListGoals returns the user's goals, newest first.
func (db *DB) ListGoals(_ context.Context, userID int64) ([]domain.GoalWeight, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.GoalWeight, 0)
	for _, g := range db.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// UpdateGoal rewrites every mutable field of g.
func (db *DB) UpdateGoal(_ context.Context, g *domain.GoalWeight) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.goals {
		if db.goals[i].ID != g.ID {
			continue
		}
		if g.IsActive && !db.goals[i].IsActive {
			for _, other := range db.goals {
				if other.UserID == g.UserID && other.IsActive {
					return 0, fmt.Errorf("active goal for user %d: %w", g.UserID, domain.ErrDuplicate)
				}
			}
		}
		createdAt := db.goals[i].CreatedAt
		db.goals[i] = *g
		db.goals[i].CreatedAt = createdAt
		return 1, nil
	}
	return 0, nil
}

// DeactivateGoal clears the active flag of one goal.
func (db *DB) DeactivateGoal(_ context.Context, id int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.goals {
		if db.goals[i].ID == id && db.goals[i].IsActive {
			db.goals[i].IsActive = false
			db.goals[i].UpdatedAt = time.Now().UTC()
			return 1, nil
		}
	}
	return 0, nil
}

// DeactivateAllGoals clears the active flag of all the user's goals.
func (db *DB) DeactivateAllGoals(_ context.Context, userID int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.deactivateAll(userID), nil
}

func (db *DB) deactivateAll(userID int64) int64 {
	var n int64
	now := time.Now().UTC()
	for i := range db.goals {
		if db.goals[i].UserID == userID && db.goals[i].IsActive {
			db.goals[i].IsActive = false
			db.goals[i].UpdatedAt = now
			n++
		}
	}
	return n
}

// ReplaceActiveGoal deactivates the user's goals and inserts g as active under
// one lock. A failed insert restores the previous goal set.
func (db *DB) ReplaceActiveGoal(_ context.Context, g *domain.GoalWeight) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := make([]domain.GoalWeight, len(db.goals))
	copy(snapshot, db.goals)
	seq := db.goalSeq

	db.deactivateAll(g.UserID)
	active := *g
	active.IsActive = true
	id, err := db.insertGoal(&active)
	if err != nil {
		db.goals = snapshot
		db.goalSeq = seq
		return 0, &domain.TransactionError{Op: "replace active goal", Err: err}
	}
	return id, nil
}

// --- AchievementRepository ---

// InsertAchievement stores a. Lifetime-unique types and GOAL_REACHED per goal
// are rejected with ErrDuplicate when already present.
func (db *DB) InsertAchievement(_ context.Context, a *domain.Achievement) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.achievements {
		if existing.UserID != a.UserID || existing.Type != a.Type {
			continue
		}
		if a.Type.LifetimeUnique() {
			return 0, fmt.Errorf("achievement %s: %w", a.Type, domain.ErrDuplicate)
		}
		if a.Type == domain.AchievementGoalReached && sameGoal(existing.GoalID, a.GoalID) {
			return 0, fmt.Errorf("achievement %s: %w", a.Type, domain.ErrDuplicate)
		}
	}

	db.achievementSeq++
	stored := *a
	stored.ID = db.achievementSeq
	db.achievements = append(db.achievements, stored)
	return stored.ID, nil
}

// ListAchievements returns the user's achievements, newest first.
func (db *DB) ListAchievements(_ context.Context, userID int64) ([]domain.Achievement, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.filterAchievements(func(a domain.Achievement) bool { return a.UserID == userID }), nil
}

// ListAchievementsByType returns the user's achievements of type t, newest first.
func (db *DB) ListAchievementsByType(_ context.Context, userID int64, t domain.AchievementType) ([]domain.Achievement, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.filterAchievements(func(a domain.Achievement) bool {
		return a.UserID == userID && a.Type == t
	}), nil
}

// ListUnnotifiedAchievements returns the user's achievements not yet handed to
// the notifier.
func (db *DB) ListUnnotifiedAchievements(_ context.Context, userID int64) ([]domain.Achievement, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.filterAchievements(func(a domain.Achievement) bool {
		return a.UserID == userID && !a.IsNotified
	}), nil
}

// HasAchievement reports whether a matching achievement exists.
func (db *DB) HasAchievement(_ context.Context, userID int64, t domain.AchievementType, goalID *int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range db.achievements {
		if a.UserID != userID || a.Type != t {
			continue
		}
		if goalID == nil || sameGoal(a.GoalID, goalID) {
			return true, nil
		}
	}
	return false, nil
}

// SetAchievementNotified updates the only mutable achievement field.
func (db *DB) SetAchievementNotified(_ context.Context, id int64, notified bool) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.achievements {
		if db.achievements[i].ID == id {
			db.achievements[i].IsNotified = notified
			return 1, nil
		}
	}
	return 0, nil
}

func (db *DB) filterAchievements(keep func(domain.Achievement) bool) []domain.Achievement {
	out := make([]domain.Achievement, 0)
	for _, a := range db.achievements {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AchievedAt.Equal(out[j].AchievedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].AchievedAt.After(out[j].AchievedAt)
	})
	return out
}

func sameGoal(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// --- PreferenceRepository ---

// GetPreference returns the stored value or fallback.
func (db *DB) GetPreference(_ context.Context, userID int64, key, fallback string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if v, ok := db.prefs[prefKey{userID, key}]; ok {
		return v, nil
	}
	return fallback, nil
}

// SetPreference upserts a value.
func (db *DB) SetPreference(_ context.Context, userID int64, key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.prefs[prefKey{userID, key}] = value
	return nil
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(_ context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Create creates a new user.
func (db *DB) Create(_ context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrDuplicate)
		}
	}

	db.userSeq++
	u := &domain.User{
		ID:           db.userSeq,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	out := *u
	return &out, nil
}

// Count returns the total number of users.
func (db *DB) Count(_ context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create stores a session.
func (r *SessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored := *s
	r.db.sessions[s.Token] = &stored
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *s
	return &out, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(_ context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes sessions that expired before now.
func (r *SessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
			n++
		}
	}
	return n, nil
}
