package auth

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"github.com/rezonia/invoicer/internal/model"
)

// ErrEmailTaken is returned by UserStore.CreateUser for duplicate emails
var ErrEmailTaken = errors.New("email already registered")

// ErrResetUnsupported is returned by providers that cannot send reset mail
var ErrResetUnsupported = model.NewPreconditionError("email", "password reset is not supported",
	"Password reset is not available on this server.")

// User is a locally registered account
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists local accounts
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
}

// Local authenticates against a UserStore with bcrypt hashes and issues
// its own tokens. Signed-out tokens are revoked in memory until they expire.
type Local struct {
	users    UserStore
	tokens   *Tokens
	revoked  *cache.Cache
	validate *validator.Validate
	cost     int
	newID    func() string
}

// LocalOption configures Local
type LocalOption func(*Local)

// WithBcryptCost sets the hashing cost
func WithBcryptCost(cost int) LocalOption {
	return func(l *Local) {
		l.cost = cost
	}
}

// NewLocal creates a local provider
func NewLocal(users UserStore, tokens *Tokens, opts ...LocalOption) *Local {
	l := &Local{
		users:    users,
		tokens:   tokens,
		revoked:  cache.New(time.Hour, 10*time.Minute),
		validate: validator.New(),
		cost:     bcrypt.DefaultCost,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	creds = creds.Normalize()
	if err := ValidateCredentials(l.validate, creds); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), l.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}

	user := User{
		ID:           l.newID(),
		Email:        creds.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			report := &model.ValidationReport{}
			report.Add("email", "is already registered")
			return nil, report.Err()
		}
		return nil, err
	}

	return l.tokens.Issue(user.ID, user.Email)
}

func (l *Local) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	creds = creds.Normalize()
	user, err := l.users.UserByEmail(ctx, creds.Email)
	if err != nil {
		if model.IsNotFound(err) {
			return nil, model.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, model.Unauthorized("invalid email or password")
	}
	return l.tokens.Issue(user.ID, user.Email)
}

// SignOut revokes token for the rest of its lifetime
func (l *Local) SignOut(_ context.Context, token string) error {
	s, err := l.tokens.Parse(token)
	if err != nil {
		// already unusable
		return nil
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	l.revoked.Set(token, struct{}{}, ttl)
	return nil
}

// ResetPassword is not available for local accounts; there is no mailer
func (l *Local) ResetPassword(context.Context, string, string) error {
	return ErrResetUnsupported
}

func (l *Local) Resolve(_ context.Context, token string) (*Session, error) {
	if _, revoked := l.revoked.Get(token); revoked {
		return nil, model.Unauthorized("session signed out")
	}
	return l.tokens.Parse(token)
}
