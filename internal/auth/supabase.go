package auth

import (
	"context"
	"strings"
	"time"

	"github.com/nedpals/supabase-go"

	"github.com/rezonia/invoicer/internal/model"
)

// Supabase delegates accounts to Supabase auth. When a JWT secret is set,
// tokens are verified locally instead of calling the user endpoint.
type Supabase struct {
	client *supabase.Client
	tokens *Tokens
}

// NewSupabase creates a provider. jwtSecret may be empty.
func NewSupabase(client *supabase.Client, jwtSecret string) *Supabase {
	s := &Supabase{client: client}
	if jwtSecret != "" {
		s.tokens = NewTokens(jwtSecret, 0, "")
	}
	return s
}

func (s *Supabase) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	creds = creds.Normalize()
	_, err := s.client.Auth.SignUp(ctx, supabase.UserCredentials{
		Email:    creds.Email,
		Password: creds.Password,
	})
	if err != nil {
		return nil, model.NewExternalError("sign up", "supabase rejected the registration", err)
	}
	return s.SignIn(ctx, creds)
}

func (s *Supabase) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	creds = creds.Normalize()
	details, err := s.client.Auth.SignIn(ctx, supabase.UserCredentials{
		Email:    creds.Email,
		Password: creds.Password,
	})
	if err != nil {
		return nil, model.Unauthorized("invalid email or password")
	}

	session := &Session{
		UserID:      details.User.ID,
		Email:       details.User.Email,
		AccessToken: details.AccessToken,
	}
	if details.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(details.ExpiresIn) * time.Second).Truncate(time.Second)
	}
	return session, nil
}

func (s *Supabase) SignOut(ctx context.Context, token string) error {
	if err := s.client.Auth.SignOut(ctx, token); err != nil {
		return model.NewExternalError("sign out", "supabase sign out failed", err)
	}
	return nil
}

func (s *Supabase) ResetPassword(ctx context.Context, email, redirectTo string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.client.Auth.ResetPasswordForEmail(ctx, email, redirectTo); err != nil {
		return model.NewExternalError("reset password", "supabase rejected the reset request", err)
	}
	return nil
}

func (s *Supabase) Resolve(ctx context.Context, token string) (*Session, error) {
	if s.tokens != nil {
		return s.tokens.Parse(token)
	}
	if token == "" {
		return nil, model.Unauthorized("missing access token")
	}
	user, err := s.client.Auth.User(ctx, token)
	if err != nil {
		return nil, model.Unauthorized("invalid access token")
	}
	return &Session{UserID: user.ID, Email: user.Email, AccessToken: token}, nil
}
