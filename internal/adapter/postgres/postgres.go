// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"weighttogo/internal/domain"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a unique index conflict.
const uniqueViolation = pq.ErrorCode("23505")

// lifetimeUniqueTypes feeds the partial unique index on achievements.
const lifetimeUniqueTypes = "'FIRST_ENTRY','STREAK_7','STREAK_30','MILESTONE_5','MILESTONE_10','MILESTONE_25','MILESTONE_50'"

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

var (
	_ domain.WeightRepository      = (*DB)(nil)
	_ domain.GoalRepository        = (*DB)(nil)
	_ domain.AchievementRepository = (*DB)(nil)
	_ domain.PreferenceRepository  = (*DB)(nil)
	_ domain.UserRepository        = (*DB)(nil)
	_ domain.SessionRepository     = (*SessionRepo)(nil)
)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks connectivity, for health probes.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, user_agent TEXT NOT NULL DEFAULT '', expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",

		`CREATE TABLE IF NOT EXISTS weight_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			value DOUBLE PRECISION NOT NULL CHECK (value > 0),
			unit TEXT NOT NULL CHECK (unit IN ('lbs','kg')),
			entry_date DATE NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_weight_entries_user_date ON weight_entries(user_id, entry_date) WHERE NOT is_deleted;",

		`CREATE TABLE IF NOT EXISTS goal_weights (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			start_weight DOUBLE PRECISION NOT NULL,
			goal_weight DOUBLE PRECISION NOT NULL,
			unit TEXT NOT NULL CHECK (unit IN ('lbs','kg')),
			target_date DATE,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			is_achieved BOOLEAN NOT NULL DEFAULT FALSE,
			achieved_date DATE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_goal_weights_one_active ON goal_weights(user_id) WHERE is_active;",
		"CREATE INDEX IF NOT EXISTS idx_goal_weights_user_id ON goal_weights(user_id);",

		// goal_id is a weak reference: no foreign key, so deleting a goal
		// leaves its achievements untouched.
		`CREATE TABLE IF NOT EXISTS achievements (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			goal_id BIGINT,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			value DOUBLE PRECISION,
			unit TEXT NOT NULL DEFAULT '',
			achieved_at TIMESTAMPTZ NOT NULL,
			is_notified BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_achievements_lifetime ON achievements(user_id, type) WHERE type IN (" + lifetimeUniqueTypes + ");",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_achievements_goal_reached ON achievements(user_id, goal_id) WHERE type = 'GOAL_REACHED';",
		"CREATE INDEX IF NOT EXISTS idx_achievements_user_id ON achievements(user_id, achieved_at DESC);",

		"CREATE TABLE IF NOT EXISTS user_preferences (user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, pref_key TEXT NOT NULL, pref_value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL, PRIMARY KEY (user_id, pref_key));",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back
// otherwise.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

// mapError translates driver errors into domain sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pqErr.Constraint, domain.ErrDuplicate)
	}
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	d := domain.DayOf(n.Time)
	return &d
}
