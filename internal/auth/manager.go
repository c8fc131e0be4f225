package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/rezonia/invoicer/internal/logger"
	"github.com/rezonia/invoicer/internal/model"
)

// Manager owns the current session of a single client
type Manager struct {
	provider Provider
	logger   *logger.Logger
	validate *validator.Validate

	mu      sync.RWMutex
	current *Session
}

// NewManager creates a manager with no session
func NewManager(p Provider, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{provider: p, logger: log, validate: validator.New()}
}

// Init resolves a previously stored token. An empty or stale token leaves
// the manager signed out without error.
func (m *Manager) Init(ctx context.Context, token string) error {
	if token == "" {
		m.set(nil)
		return nil
	}
	s, err := m.provider.Resolve(ctx, token)
	if err != nil {
		if model.IsUnauthorized(err) {
			m.logger.Debugw("stored session rejected", "error", err)
			m.set(nil)
			return nil
		}
		return err
	}
	m.set(s)
	return nil
}

// Current returns the active session
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Context attaches the active session, if any, to ctx
func (m *Manager) Context(ctx context.Context) context.Context {
	if s, ok := m.Current(); ok {
		return WithSession(ctx, s)
	}
	return ctx
}

// SignUp registers and signs in
func (m *Manager) SignUp(ctx context.Context, creds Credentials) (Session, error) {
	return m.enter(ctx, creds, m.provider.SignUp)
}

// SignIn signs in with existing credentials
func (m *Manager) SignIn(ctx context.Context, creds Credentials) (Session, error) {
	return m.enter(ctx, creds, m.provider.SignIn)
}

// SignOut clears the session. The local session is cleared even when the
// provider call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	s, ok := m.Current()
	m.set(nil)
	if !ok {
		return nil
	}
	return m.provider.SignOut(ctx, s.AccessToken)
}

// ResetPassword asks the provider to mail a reset link. It does not touch
// the current session.
func (m *Manager) ResetPassword(ctx context.Context, email, redirectTo string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := m.validate.Var(email, "required,email"); err != nil {
		report := &model.ValidationReport{}
		report.Add("email", "must be a valid email address")
		return report.Err()
	}
	if err := m.provider.ResetPassword(ctx, email, redirectTo); err != nil {
		return err
	}
	m.logger.Infow("password reset requested", "email", email)
	return nil
}

func (m *Manager) enter(ctx context.Context, creds Credentials, fn func(context.Context, Credentials) (*Session, error)) (Session, error) {
	creds = creds.Normalize()
	if err := ValidateCredentials(m.validate, creds); err != nil {
		return Session{}, err
	}
	s, err := fn(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	m.set(s)
	return *s, nil
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

// ValidateCredentials reports malformed credentials as a validation error
func ValidateCredentials(v *validator.Validate, creds Credentials) error {
	if err := v.Struct(creds); err != nil {
		report := &model.ValidationReport{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.Field() {
				case "Email":
					report.Add("email", "must be a valid email address")
				case "Password":
					report.Add("password", "must be at least 6 characters")
				}
			}
		}
		if !report.HasErrors() {
			report.Add("credentials", err.Error())
		}
		return report.Err()
	}
	return nil
}
