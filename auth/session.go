// Package auth issues and resolves login sessions and runs the GitHub login
// flow.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
)

const (
	CookieName = "round_session"
	issuer     = "round"
)

// SessionStore persists server-side session records.
type SessionStore interface {
	Add(ctx context.Context, session *models.Session) error
	FindActive(ctx context.Context, tokenID string, now time.Time) (*models.Session, error)
	Revoke(ctx context.Context, tokenID string) error
}

// RequestMeta is client information recorded on a new session.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// SessionManager signs session tokens and checks them against the session
// table, so a token stops working as soon as its row is revoked.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	store  SessionStore
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, store SessionStore) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}
}

// WithClock replaces the manager's time source.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// TTL is the lifetime of newly issued sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a session for userID and returns its signed token.
func (m *SessionManager) Issue(ctx context.Context, userID string, meta RequestMeta) (string, *models.Session, error) {
	now := m.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		TokenID:   uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(m.ttl),
		IPAddress: optional(meta.IPAddress),
		UserAgent: optional(meta.UserAgent),
	}
	if err := m.store.Add(ctx, session); err != nil {
		return "", nil, err
	}

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		ID:        session.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, errs.NewInternalErrorWithCause("failed to sign session", err)
	}
	return token, session, nil
}

// Resolve returns the live session, with its user, named by token.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, errs.NewMissingTokenError()
	}
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}
	session, err := m.store.FindActive(ctx, claims.ID, m.now())
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NewInvalidTokenError()
		}
		return nil, err
	}
	if session.UserID != claims.Subject {
		return nil, errs.NewInvalidTokenError()
	}
	return session, nil
}

// Revoke ends the session named by token. Tokens that no longer parse have
// nothing to revoke.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	return m.store.Revoke(ctx, claims.ID)
}

func (m *SessionManager) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errs.NewExpiredTokenError()
	case err != nil:
		return nil, errs.NewInvalidTokenError()
	case claims.ID == "" || claims.Subject == "":
		return nil, errs.NewInvalidTokenError()
	}
	return claims, nil
}

// Cookie wraps token in the session cookie.
func (m *SessionManager) Cookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie overwrites the session cookie with an expired one.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest reads the session token from the Authorization header or,
// failing that, the session cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
