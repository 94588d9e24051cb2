package account

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persistent account record. Email and username are unique at
// the storage layer; email is stored lowercase so lookups are
// case-insensitive. The verification and reset token pairs are independent
// and may coexist.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Username     string    `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`

	Verified              bool       `bun:"is_verified" json:"is_verified,omitempty"`
	VerificationToken     string     `bun:"verification_token,nullzero" json:"-"`
	VerificationExpiresAt *time.Time `bun:"verification_expires_at,nullzero" json:"-"`

	ResetToken     string     `bun:"reset_token,nullzero" json:"-"`
	ResetExpiresAt *time.Time `bun:"reset_expires_at,nullzero" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*User)(nil)

// BeforeAppendModel keeps updated_at honest on every mutation.
func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.CreatedAt == nil {
			u.CreatedAt = &now
		}
		u.UpdatedAt = &now
	case *bun.UpdateQuery:
		u.UpdatedAt = &now
	}
	return nil
}

// PublicUser is the subset of User that may leave the account package.
// The password hash never travels past this boundary.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"userName"`
}

// Public returns the externally visible view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
	}
}

// SetVerificationToken replaces any outstanding verification token; the
// previous token becomes permanently invalid.
func (u *User) SetVerificationToken(t IssuedToken) {
	u.VerificationToken = t.Token
	expiresAt := t.ExpiresAt
	u.VerificationExpiresAt = &expiresAt
}

// SetResetToken replaces any outstanding password reset token.
func (u *User) SetResetToken(t IssuedToken) {
	u.ResetToken = t.Token
	expiresAt := t.ExpiresAt
	u.ResetExpiresAt = &expiresAt
}

// NormalizeEmail lowercases and trims an email address so identity lookups
// are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
