// Package app holds the application services: the goal lifecycle, the
// achievement detector, weight capture, progress, preferences, notification
// hand-off and authentication.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"weighttogo/internal/domain"
)

// SessionTTL is how long a login session stays valid.
const SessionTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsersExist is returned by CreateInitialUser once any account exists.
	ErrUsersExist = errors.New("users already exist")
)

// AuthService handles authentication and session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	log      *logrus.Logger
	now      func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, log *logrus.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, username, password, userAgent string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil || user == nil {
		return "", ErrInvalidCredentials
	}
	// SSO-provisioned accounts have no password.
	if user.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("username", username).Warn("Failed login attempt")
		return "", ErrInvalidCredentials
	}

	return s.startSession(ctx, user.ID, userAgent)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// ValidateSession checks if a session token is valid and matches the user agent.
func (s *AuthService) ValidateSession(ctx context.Context, token, userAgent string) (*domain.User, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	if !ConstantTimeCompare(session.UserAgent, userAgent) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// CreateInitialUser creates the first user if no users exist.
func (s *AuthService) CreateInitialUser(ctx context.Context, username, password string) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return domain.NewStorageError("count users", err)
	}

	if count > 0 {
		return ErrUsersExist
	}
	if username == "" || len(password) < 8 {
		return fmt.Errorf("%w: username required and password must be at least 8 characters", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err = s.users.Create(ctx, username, string(hash)); err != nil {
		return domain.NewStorageError("create user", err)
	}
	s.log.WithField("username", username).Info("Initial user created")
	return nil
}

// ValidateForwardAuth validates a request from a forward-auth proxy.
// It checks for the Remote-User header set by the proxy.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.User, error) {
	if remoteUser == "" {
		return nil, errors.New("no remote user header")
	}
	return s.provision(ctx, remoteUser)
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, username, userAgent string) (string, error) {
	user, err := s.provision(ctx, username)
	if err != nil {
		return "", err
	}
	return s.startSession(ctx, user.ID, userAgent)
}

// PurgeExpiredSessions deletes every session past its expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, domain.NewStorageError("delete expired sessions", err)
	}
	if n > 0 {
		s.log.WithField("count", n).Info("Expired sessions purged")
	}
	return n, nil
}

// provision returns the named user, creating a password-less account when it
// does not exist yet.
func (s *AuthService) provision(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewStorageError("get user", err)
	}

	user, err = s.users.Create(ctx, username, "")
	if errors.Is(err, domain.ErrDuplicate) {
		// Lost a race with a concurrent first login.
		return s.users.GetByUsername(ctx, username)
	}
	if err != nil {
		return nil, domain.NewStorageError("create user", err)
	}
	s.log.WithField("username", username).Info("Provisioned SSO user")
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, userID int64, userAgent string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	session := &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", domain.NewStorageError("create session", err)
	}

	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
