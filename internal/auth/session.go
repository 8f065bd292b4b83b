package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentroll.org/internal/store"
)

const defaultTokenTTL = 12 * time.Hour

// Sessions implements the single-tenant session lifecycle over the user
// store: logging in activates exactly one user (deactivating the rest) and
// issues a bearer token for the HTTP layer.
type Sessions struct {
	users    store.UserStore
	tokenTTL time.Duration
	now      func() time.Time
}

// NewSessions creates a session service over the given user store.
func NewSessions(users store.UserStore) *Sessions {
	return &Sessions{users: users, tokenTTL: defaultTokenTTL, now: time.Now}
}

// Signup registers a new operator account. The account is created inactive;
// a login performs the activation switch.
func (s *Sessions) Signup(ctx context.Context, email, name, password string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("valid email is required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &store.User{Email: email, Name: strings.TrimSpace(name), PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials, atomically switches the active user to the
// authenticated one, records the login time, and issues a token.
func (s *Sessions) Login(ctx context.Context, email, password string) (string, *store.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return "", nil, err
	}
	if err := s.users.Switch(ctx, u.ID); err != nil {
		return "", nil, err
	}
	if err := s.users.RecordLogin(ctx, u.ID, s.now().UTC()); err != nil {
		return "", nil, err
	}
	token, err := GenerateToken(u.ID, u.Email, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	u.Active = true
	return token, u, nil
}

// Switch moves the single active session to another existing user and issues
// a token for it. Used by the account-switch flow after re-authentication.
func (s *Sessions) Switch(ctx context.Context, userID string) (string, *store.User, error) {
	u, err := s.users.Find(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if err := s.users.Switch(ctx, u.ID); err != nil {
		return "", nil, err
	}
	token, err := GenerateToken(u.ID, u.Email, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	u.Active = true
	return token, u, nil
}
