package auth

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v4"

	"github.com/rezonia/invoicer/internal/model"
)

// Claims carried by access tokens. Supabase tokens use the same shape.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokens creates a token helper. ttl <= 0 means one hour.
func NewTokens(secret string, ttl time.Duration, issuer string) *Tokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// WithClock replaces the issue time source
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

// Issue signs a token for the user
func (t *Tokens) Issue(userID, email string) (*Session, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, errors.Wrap(err, "signing access token")
	}
	return &Session{
		UserID:      userID,
		Email:       email,
		AccessToken: signed,
		ExpiresAt:   expires.Truncate(time.Second),
	}, nil
}

// Parse verifies token and returns the session it describes
func (t *Tokens) Parse(token string) (*Session, error) {
	if token == "" {
		return nil, model.Unauthorized("missing access token")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err == nil && !parsed.Valid {
		err = errors.New("token not valid")
	}
	if err != nil {
		return nil, errors.WithHint(
			errors.Mark(errors.Wrap(err, "invalid access token"), model.ErrUnauthorized),
			"Your session has expired. Please sign in again.")
	}
	if claims.Subject == "" {
		return nil, model.Unauthorized("token missing user ID")
	}

	s := &Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		AccessToken: token,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
