package postgres

import (
	"context"
	"database/sql"

	"weighttogo/internal/domain"
)

const weightColumns = "id, user_id, value, unit, entry_date, notes, created_at, updated_at, is_deleted"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWeight(row rowScanner) (*domain.WeightEntry, error) {
	var e domain.WeightEntry
	if err := row.Scan(&e.ID, &e.UserID, &e.Value, &e.Unit, &e.Date, &e.Notes, &e.CreatedAt, &e.UpdatedAt, &e.Deleted); err != nil {
		return nil, err
	}
	e.Date = domain.DayOf(e.Date)
	return &e, nil
}

func collectWeights(rows *sql.Rows) ([]domain.WeightEntry, error) {
	defer rows.Close()
	out := make([]domain.WeightEntry, 0)
	for rows.Next() {
		e, err := scanWeight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// InsertWeightEntry inserts a new weight entry.
func (d *DB) InsertWeightEntry(ctx context.Context, e *domain.WeightEntry) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO weight_entries(user_id, value, unit, entry_date, notes, created_at, updated_at) VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING id;",
		e.UserID, e.Value, string(e.Unit), e.Date.Format(domain.DayLayout), e.Notes, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	).Scan(&id)
	return id, mapError(err)
}

// GetWeightEntry returns an entry by id, including soft-deleted ones.
func (d *DB) GetWeightEntry(ctx context.Context, id int64) (*domain.WeightEntry, error) {
	e, err := scanWeight(d.sql.QueryRowContext(ctx,
		"SELECT "+weightColumns+" FROM weight_entries WHERE id = $1;", id))
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

// LatestWeightEntry returns the live entry with the most recent date.
func (d *DB) LatestWeightEntry(ctx context.Context, userID int64) (*domain.WeightEntry, error) {
	e, err := scanWeight(d.sql.QueryRowContext(ctx,
		"SELECT "+weightColumns+" FROM weight_entries WHERE user_id = $1 AND NOT is_deleted ORDER BY entry_date DESC, created_at DESC LIMIT 1;",
		userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListWeightEntries returns live entries, newest date first.
func (d *DB) ListWeightEntries(ctx context.Context, userID int64) ([]domain.WeightEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+weightColumns+" FROM weight_entries WHERE user_id = $1 AND NOT is_deleted ORDER BY entry_date DESC, created_at DESC;",
		userID)
	if err != nil {
		return nil, err
	}
	return collectWeights(rows)
}

// ListRecentWeightEntries returns the most recent live entries up to limit.
func (d *DB) ListRecentWeightEntries(ctx context.Context, userID int64, limit int) ([]domain.WeightEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+weightColumns+" FROM weight_entries WHERE user_id = $1 AND NOT is_deleted ORDER BY entry_date DESC, created_at DESC LIMIT $2;",
		userID, limit)
	if err != nil {
		return nil, err
	}
	return collectWeights(rows)
}

// UpdateWeightEntry rewrites value, unit, date and notes of a live entry.
func (d *DB) UpdateWeightEntry(ctx context.Context, e *domain.WeightEntry) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE weight_entries SET value = $1, unit = $2, entry_date = $3, notes = $4, updated_at = $5 WHERE id = $6 AND user_id = $7 AND NOT is_deleted;",
		e.Value, string(e.Unit), e.Date.Format(domain.DayLayout), e.Notes, e.UpdatedAt.UTC(), e.ID, e.UserID,
	)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

// SoftDeleteWeightEntry flags an entry deleted.
func (d *DB) SoftDeleteWeightEntry(ctx context.Context, userID, id int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE weight_entries SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2 AND NOT is_deleted;",
		id, userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
