package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const issuer = "storefront"

// minSecretLength guards against a forgotten or placeholder SECRET_KEY.
const minSecretLength = 16

// ErrSessionExpired is returned by Parse for a well-formed but expired token.
var ErrSessionExpired = errors.New("auth: session expired")

// Session is the decoded content of a session cookie.
type Session struct {
	ID        string // jti, the handle used for revocation
	UserID    int64
	ExpiresAt time.Time
}

// TokenService signs and verifies session tokens (HS256 JWTs). The token is
// the whole session: the server keeps no per-login state except the list of
// revoked session IDs.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given signing secret and
// session lifetime.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: secret key must be at least %d characters", minSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued sessions.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue creates a new session for userID and returns it with its signed token.
// Each session gets a fresh xid as its jti so it can be revoked on its own.
func (s *TokenService) Issue(userID int64) (Session, string, error) {
	now := s.now()
	sess := Session{
		ID:        xid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("auth: signing session token: %w", err)
	}
	return sess, signed, nil
}

// Parse verifies a token's signature, algorithm, issuer and expiry and returns
// the session it carries.
func (s *TokenService) Parse(tokenStr string) (Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, fmt.Errorf("auth: invalid session token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Session{}, errors.New("auth: invalid session claims")
	}
	if c.ID == "" {
		return Session{}, errors.New("auth: session token has no id")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Session{}, fmt.Errorf("auth: session token has bad subject %q", c.Subject)
	}

	return Session{
		ID:        c.ID,
		UserID:    userID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
