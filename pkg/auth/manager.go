package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lora-console/pkg/model"
)

// ErrMissingCredentials is returned by Login when the token or user id is blank.
var ErrMissingCredentials = errors.New("token and user id are required")

// Validator checks upstream credentials before a session is created.
type Validator interface {
	GetUser(ctx context.Context, token, userID string) (model.User, error)
}

// Manager owns the session lifecycle: Login creates, Logout clears.
type Manager struct {
	issuer    *Issuer
	sessions  SessionStore
	validator Validator
	ttl       time.Duration
	now       func() time.Time
}

func NewManager(issuer *Issuer, sessions SessionStore, validator Validator, ttl time.Duration) *Manager {
	return &Manager{issuer: issuer, sessions: sessions, validator: validator, ttl: ttl, now: time.Now}
}

// Login validates the TTN credentials and returns a console token.
func (m *Manager) Login(ctx context.Context, ttnToken, userID string) (string, model.Session, error) {
	ttnToken = strings.TrimSpace(ttnToken)
	userID = strings.TrimSpace(userID)
	if ttnToken == "" || userID == "" {
		return "", model.Session{}, ErrMissingCredentials
	}
	if _, err := m.validator.GetUser(ctx, ttnToken, userID); err != nil {
		return "", model.Session{}, fmt.Errorf("validate credentials: %w", err)
	}
	now := m.now()
	s := model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TTNToken:  ttnToken,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.sessions.Put(ctx, s); err != nil {
		return "", model.Session{}, fmt.Errorf("store session: %w", err)
	}
	token, err := m.issuer.Generate(s.ID, s.UserID, s.ExpiresAt)
	if err != nil {
		_ = m.sessions.Delete(ctx, s.ID)
		return "", model.Session{}, err
	}
	return token, s, nil
}

// Authenticate resolves a console token to its live session.
func (m *Manager) Authenticate(ctx context.Context, token string) (model.Session, error) {
	claims, err := m.issuer.Parse(token)
	if err != nil {
		return model.Session{}, err
	}
	s, err := m.sessions.Get(ctx, claims.ID)
	if err != nil {
		return model.Session{}, err
	}
	if s.Expired(m.now()) {
		_ = m.sessions.Delete(ctx, s.ID)
		return model.Session{}, ErrSessionNotFound
	}
	return s, nil
}

// Logout clears the session so its token stops working.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	return m.sessions.Delete(ctx, sessionID)
}
