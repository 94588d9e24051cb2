package account

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultSessionTTL applies when no expiration is configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionClaims are the identity claims carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// UserID returns the authoritative user identifier.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// SessionVerifier validates bearer tokens without a store lookup.
type SessionVerifier interface {
	Verify(raw string) (*SessionClaims, error)
}

// SessionIssuer signs and verifies stateless HS256 session tokens.
// Signature and expiry are checked in one parse; an expired token and a
// tampered one fail with the same error kind, so validity cannot be
// probed through response differences.
type SessionIssuer struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
}

func NewSessionIssuer(signingKey []byte, ttl time.Duration, issuer string) *SessionIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionIssuer{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		logger:     defLogger{},
	}
}

func (s *SessionIssuer) WithLogger(logger Logger) *SessionIssuer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Issue signs a session token for the given user.
func (s *SessionIssuer) Issue(user *User) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UID:      user.ID.String(),
		Email:    user.Email,
		Username: user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Verify parses and validates a session token. Every failure mode maps to
// ErrSessionInvalid.
func (s *SessionIssuer) Verify(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSessionInvalid
		}
		return s.signingKey, nil
	}, parserOptions...)

	if err != nil {
		s.logger.Debug("session token rejected: %v", err)
		return nil, ErrSessionInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrSessionInvalid
	}

	return claims, nil
}
