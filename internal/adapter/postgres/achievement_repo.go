package postgres

import (
	"context"
	"database/sql"

	"weighttogo/internal/domain"
)

const achievementColumns = "id, user_id, goal_id, type, title, description, value, unit, achieved_at, is_notified"

func (d *DB) queryAchievements(ctx context.Context, query string, args ...any) ([]domain.Achievement, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Achievement, 0)
	for rows.Next() {
		var (
			a      domain.Achievement
			goalID sql.NullInt64
			value  sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &goalID, &a.Type, &a.Title, &a.Description,
			&value, &a.Unit, &a.AchievedAt, &a.IsNotified); err != nil {
			return nil, err
		}
		if goalID.Valid {
			id := goalID.Int64
			a.GoalID = &id
		}
		if value.Valid {
			v := value.Float64
			a.Value = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAchievement inserts a. A conflict on one of the partial unique
// indexes is reported as domain.ErrDuplicate.
func (d *DB) InsertAchievement(ctx context.Context, a *domain.Achievement) (int64, error) {
	var goalID sql.NullInt64
	if a.GoalID != nil {
		goalID = sql.NullInt64{Int64: *a.GoalID, Valid: true}
	}
	var value sql.NullFloat64
	if a.Value != nil {
		value = sql.NullFloat64{Float64: *a.Value, Valid: true}
	}

	var id int64
	err := d.sql.QueryRowContext(ctx,
		`INSERT INTO achievements(user_id, goal_id, type, title, description, value, unit, achieved_at, is_notified)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id;`,
		a.UserID, goalID, string(a.Type), a.Title, a.Description, value, string(a.Unit), a.AchievedAt.UTC(), a.IsNotified,
	).Scan(&id)
	return id, mapError(err)
}

// ListAchievements returns the user's achievements, newest first.
func (d *DB) ListAchievements(ctx context.Context, userID int64) ([]domain.Achievement, error) {
	return d.queryAchievements(ctx,
		"SELECT "+achievementColumns+" FROM achievements WHERE user_id = $1 ORDER BY achieved_at DESC, id DESC;", userID)
}

// ListAchievementsByType returns the user's achievements of type t, newest first.
func (d *DB) ListAchievementsByType(ctx context.Context, userID int64, t domain.AchievementType) ([]domain.Achievement, error) {
	return d.queryAchievements(ctx,
		"SELECT "+achievementColumns+" FROM achievements WHERE user_id = $1 AND type = $2 ORDER BY achieved_at DESC, id DESC;",
		userID, string(t))
}

// ListUnnotifiedAchievements returns achievements not yet handed to the notifier.
func (d *DB) ListUnnotifiedAchievements(ctx context.Context, userID int64) ([]domain.Achievement, error) {
	return d.queryAchievements(ctx,
		"SELECT "+achievementColumns+" FROM achievements WHERE user_id = $1 AND NOT is_notified ORDER BY achieved_at DESC, id DESC;", userID)
}

// HasAchievement reports whether a matching achievement exists. A non-nil
// goalID narrows the check to that goal.
func (d *DB) HasAchievement(ctx context.Context, userID int64, t domain.AchievementType, goalID *int64) (bool, error) {
	var exists bool
	var err error
	if goalID == nil {
		err = d.sql.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM achievements WHERE user_id = $1 AND type = $2);",
			userID, string(t)).Scan(&exists)
	} else {
		err = d.sql.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM achievements WHERE user_id = $1 AND type = $2 AND goal_id = $3);",
			userID, string(t), *goalID).Scan(&exists)
	}
	return exists, err
}

// SetAchievementNotified updates the notified flag.
func (d *DB) SetAchievementNotified(ctx context.Context, id int64, notified bool) (int64, error) {
	res, err := d.sql.ExecContext(ctx, "UPDATE achievements SET is_notified = $1 WHERE id = $2;", notified, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
