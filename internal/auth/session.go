// Package auth resolves who is using the builder. Sessions are explicit
// values: the CLI keeps one in a Manager, HTTP requests carry one in their
// context. Auth gates persistence only.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rezonia/invoicer/internal/model"
)

// Session is a signed-in user
type Session struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry. A zero expiry
// never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials are an email/password pair
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Normalize trims and lowercases the email
func (c Credentials) Normalize() Credentials {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return c
}

// Provider is an identity backend
type Provider interface {
	SignUp(ctx context.Context, creds Credentials) (*Session, error)
	SignIn(ctx context.Context, creds Credentials) (*Session, error)
	SignOut(ctx context.Context, token string) error
	// ResetPassword mails a reset link for email. redirectTo is where the
	// link lands; it may be empty.
	ResetPassword(ctx context.Context, email, redirectTo string) error
	Resolve(ctx context.Context, token string) (*Session, error)
}

type sessionKey struct{}

// WithSession attaches s to ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session attached to ctx
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// RequireSession returns the session in ctx or an unauthorized error
func RequireSession(ctx context.Context) (Session, error) {
	s, ok := SessionFrom(ctx)
	if !ok || s.UserID == "" {
		return Session{}, model.Unauthorized("no active session")
	}
	return s, nil
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
