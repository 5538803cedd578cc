package postgres

import (
	"context"
	"time"

	"weighttogo/internal/domain"
)

const (
	userColumns    = "id, username, password_hash, created_at"
	sessionColumns = "token, user_id, user_agent, expires_at, created_at"
)

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// GetByUsername returns ErrNotFound for an unknown name.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1;", username))
}

func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1;", id))
}

// Create inserts a user. A taken username maps to ErrDuplicate, which SSO
// provisioning relies on to detect a concurrent first login.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"INSERT INTO users(username, password_hash, created_at) VALUES($1, $2, $3) RETURNING "+userColumns+";",
		username, passwordHash, time.Now().UTC()))
}

func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users;").Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// SessionRepo stores login sessions in the same database as the users.
type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions("+sessionColumns+") VALUES($1, $2, $3, $4, $5);",
		s.Token, s.UserID, s.UserAgent, s.ExpiresAt.UTC(), s.CreatedAt.UTC())
	return mapError(err)
}

// GetByToken returns the session regardless of expiry; AuthService checks it.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE token = $1;", token,
	).Scan(&s.Token, &s.UserID, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1;", token)
	return mapError(err)
}

// DeleteExpired purges sessions that expired before now and reports how many.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1;", now.UTC())
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}
