// Package profile stores the health profile attached to an account. It sits
// behind the bearer middleware and never touches credential state.
package profile

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`

	ID        uuid.UUID  `bun:"id,pk,notnull" json:"id"`
	UserID    uuid.UUID  `bun:"user_id,notnull,unique" json:"userId"`
	FullName  string     `bun:"full_name" json:"fullName"`
	BirthDate *time.Time `bun:"birth_date,nullzero" json:"birthDate,omitempty"`
	Sex       string     `bun:"sex" json:"sex"`
	HeightCm  float64    `bun:"height_cm" json:"heightCm"`
	WeightKg  float64    `bun:"weight_kg" json:"weightKg"`
	Phone     string     `bun:"phone" json:"phone,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

var _ bun.BeforeAppendModelHook = (*Profile)(nil)

func (p *Profile) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		now := time.Now()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
	case *bun.UpdateQuery:
		p.UpdatedAt = time.Now()
	}
	return nil
}

var ErrInvalidPhone = goerrors.New("invalid phone number", goerrors.CategoryValidation).
	WithTextCode("INVALID_PHONE_NUMBER").
	WithCode(goerrors.CodeBadRequest)

// NormalizePhone parses an international phone number and renders it in
// E.164 form. Numbers without a country prefix are rejected.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	parsed, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", ErrInvalidPhone
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalidPhone
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
