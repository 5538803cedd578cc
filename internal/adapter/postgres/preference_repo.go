package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetPreference returns the stored value for key, or fallback when unset.
func (d *DB) GetPreference(ctx context.Context, userID int64, key, fallback string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx,
		"SELECT pref_value FROM user_preferences WHERE user_id = $1 AND pref_key = $2;",
		userID, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// SetPreference upserts a value.
func (d *DB) SetPreference(ctx context.Context, userID int64, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO user_preferences(user_id, pref_key, pref_value, updated_at) VALUES($1, $2, $3, $4)
			ON CONFLICT (user_id, pref_key) DO UPDATE SET pref_value = EXCLUDED.pref_value, updated_at = EXCLUDED.updated_at;`,
		userID, key, value, time.Now().UTC(),
	)
	return err
}
