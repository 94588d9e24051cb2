package account

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// VerificationTokenTTL bounds email verification tokens.
	VerificationTokenTTL = 24 * time.Hour
	// ResetTokenTTL bounds password reset tokens.
	ResetTokenTTL = time.Hour

	tokenEntropyBytes = 16
)

// IssuedToken pairs an opaque token with its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer mints opaque lifecycle tokens: 128 bits from crypto/rand
// rendered as fixed-length hex. Stateless and safe for concurrent use.
type TokenIssuer struct {
	now func() time.Time
}

type TokenIssuerOption func(*TokenIssuer)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) {
		if clock != nil {
			t.now = clock
		}
	}
}

func NewTokenIssuer(opts ...TokenIssuerOption) *TokenIssuer {
	issuer := &TokenIssuer{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}
	return issuer
}

// Issue mints a token expiring ttl from now.
func (t *TokenIssuer) Issue(ttl time.Duration) (IssuedToken, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return IssuedToken{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random source")
	}

	return IssuedToken{
		Token:     hex.EncodeToString(buf),
		ExpiresAt: t.now().Add(ttl),
	}, nil
}
