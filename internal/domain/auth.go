// Package domain contains the weight-tracking entities, the repository ports
// the application depends on, and the pure calculators behind goal progress
// and logging streaks.
package domain

import (
	"context"
	"time"
)

// User is an account owning weight entries, goals and achievements.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session binds an opaque cookie token to a user and the browser that opened it.
type Session struct {
	Token     string
	UserID    int64
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UserRepository is the port for accounts. Lookups of unknown users return
// ErrNotFound.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	Count(ctx context.Context) (int, error)
}

// SessionRepository is the port for login sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
