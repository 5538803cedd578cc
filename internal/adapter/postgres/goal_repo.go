package postgres

import (
	"context"
	"database/sql"

	"weighttogo/internal/domain"
)

const goalColumns = "id, user_id, start_weight, goal_weight, unit, target_date, is_active, is_achieved, achieved_date, created_at, updated_at"

const insertGoalSQL = `INSERT INTO goal_weights(user_id, start_weight, goal_weight, unit, target_date, is_active, is_achieved, achieved_date, created_at, updated_at)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id;`

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanGoal(row rowScanner) (*domain.GoalWeight, error) {
	var (
		g            domain.GoalWeight
		target       sql.NullTime
		achievedDate sql.NullTime
	)
	err := row.Scan(&g.ID, &g.UserID, &g.StartWeight, &g.GoalWeight, &g.Unit, &target,
		&g.IsActive, &g.IsAchieved, &achievedDate, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.TargetDate = timePtr(target)
	g.AchievedDate = timePtr(achievedDate)
	return &g, nil
}

func (d *DB) queryGoals(ctx context.Context, query string, args ...any) ([]domain.GoalWeight, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.GoalWeight, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func insertGoal(ctx context.Context, q execQuerier, g *domain.GoalWeight) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, insertGoalSQL,
		g.UserID, g.StartWeight, g.GoalWeight, string(g.Unit), nullTime(g.TargetDate),
		g.IsActive, g.IsAchieved, nullTime(g.AchievedDate), g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// InsertGoal inserts a goal as given.
func (d *DB) InsertGoal(ctx context.Context, g *domain.GoalWeight) (int64, error) {
	id, err := insertGoal(ctx, d.sql, g)
	return id, mapError(err)
}

// GetGoal returns a goal by id.
func (d *DB) GetGoal(ctx context.Context, id int64) (*domain.GoalWeight, error) {
	g, err := scanGoal(d.sql.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM goal_weights WHERE id = $1;", id))
	if err != nil {
		return nil, mapError(err)
	}
	return g, nil
}

// ActiveGoals returns every goal flagged active for the user.
func (d *DB) ActiveGoals(ctx context.Context, userID int64) ([]domain.GoalWeight, error) {
	return d.queryGoals(ctx,
		"SELECT "+goalColumns+" FROM goal_weights WHERE user_id = $1 AND is_active;", userID)
}

// ListGoals returns the user's goals, newest first.
func (d *DB) ListGoals(ctx context.Context, userID int64) ([]domain.GoalWeight, error) {
	return d.queryGoals(ctx,
		"SELECT "+goalColumns+" FROM goal_weights WHERE user_id = $1 ORDER BY created_at DESC, id DESC;", userID)
}

// UpdateGoal rewrites the mutable fields of g.
func (d *DB) UpdateGoal(ctx context.Context, g *domain.GoalWeight) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE goal_weights SET start_weight = $1, goal_weight = $2, unit = $3, target_date = $4,
			is_active = $5, is_achieved = $6, achieved_date = $7, updated_at = $8 WHERE id = $9;`,
		g.StartWeight, g.GoalWeight, string(g.Unit), nullTime(g.TargetDate),
		g.IsActive, g.IsAchieved, nullTime(g.AchievedDate), g.UpdatedAt.UTC(), g.ID,
	)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

// DeactivateGoal clears the active flag of one goal.
func (d *DB) DeactivateGoal(ctx context.Context, id int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE goal_weights SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active;", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeactivateAllGoals clears the active flag of all the user's goals.
func (d *DB) DeactivateAllGoals(ctx context.Context, userID int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE goal_weights SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_active;", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReplaceActiveGoal deactivates the user's goals and inserts g as active in
// one transaction.
func (d *DB) ReplaceActiveGoal(ctx context.Context, g *domain.GoalWeight) (int64, error) {
	var id int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE goal_weights SET is_active = FALSE, updated_at = $2 WHERE user_id = $1 AND is_active;",
			g.UserID, g.UpdatedAt.UTC(),
		); err != nil {
			return err
		}
		active := *g
		active.IsActive = true
		var err error
		id, err = insertGoal(ctx, tx, &active)
		return err
	})
	if err != nil {
		return 0, &domain.TransactionError{Op: "replace active goal", Err: mapError(err)}
	}
	return id, nil
}
