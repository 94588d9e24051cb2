// Package apikey manages API keys for programmatic access. The secret is
// shown once at creation; storage keeps only a SHA-256 digest.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// KeyScheme prefixes every issued key so leaked credentials are easy to
	// recognize in scanners and logs.
	KeyScheme = "vsk"

	prefixBytes = 4
	secretBytes = 16
)

var ErrKeyInvalid = goerrors.New("invalid API key", goerrors.CategoryAuth).
	WithTextCode("API_KEY_INVALID").
	WithCode(goerrors.CodeUnauthorized)

type Key struct {
	bun.BaseModel `bun:"table:api_keys,alias:key"`

	ID         uuid.UUID  `bun:"id,pk,notnull" json:"id"`
	UserID     uuid.UUID  `bun:"user_id,notnull" json:"userId"`
	Label      string     `bun:"label" json:"label"`
	Prefix     string     `bun:"prefix,notnull,unique" json:"prefix"`
	SecretHash string     `bun:"secret_hash,notnull" json:"-"`
	LastUsedAt *time.Time `bun:"last_used_at,nullzero" json:"lastUsedAt,omitempty"`
	ExpiresAt  *time.Time `bun:"expires_at,nullzero" json:"expiresAt,omitempty"`
	RevokedAt  *time.Time `bun:"revoked_at,nullzero" json:"revokedAt,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

var _ bun.BeforeAppendModelHook = (*Key)(nil)

func (k *Key) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if k.CreatedAt.IsZero() {
			k.CreatedAt = time.Now()
		}
	}
	return nil
}

// Usable reports whether the key can still authenticate requests.
func (k *Key) Usable(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Generate mints a new key pair: the record to persist and the full token
// `vsk_<prefix>_<secret>` to hand to the caller exactly once.
func Generate(userID uuid.UUID, label string) (*Key, string, error) {
	prefix, err := randomHex(prefixBytes)
	if err != nil {
		return nil, "", err
	}

	secret, err := randomHex(secretBytes)
	if err != nil {
		return nil, "", err
	}

	record := &Key{
		ID:         uuid.New(),
		UserID:     userID,
		Label:      label,
		Prefix:     prefix,
		SecretHash: hashSecret(secret),
	}

	return record, fmt.Sprintf("%s_%s_%s", KeyScheme, prefix, secret), nil
}

// SplitToken breaks a presented token into its prefix and secret. Any
// malformed token yields ErrKeyInvalid.
func SplitToken(token string) (prefix, secret string, err error) {
	parts := strings.Split(token, "_")
	if len(parts) != 3 || parts[0] != KeyScheme || parts[1] == "" || parts[2] == "" {
		return "", "", ErrKeyInvalid
	}
	return parts[1], parts[2], nil
}

// VerifySecret compares a presented secret against the stored digest in
// constant time.
func (k *Key) VerifySecret(secret string) bool {
	digest := hashSecret(secret)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(k.SecretHash)) == 1
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes")
	}
	return hex.EncodeToString(buf), nil
}
