package account

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerifyUserSQL flips the account to verified and clears the token pair in
// one statement, so a consumed token can never validate again.
var VerifyUserSQL = `UPDATE "users" AS "usr"
SET
	"is_verified" = TRUE,
	"verification_token" = NULL,
	"verification_expires_at" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

// ResetUserPasswordSQL replaces the credential and clears the reset token
// pair in one statement.
var ResetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"reset_token" = NULL,
	"reset_expires_at" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	GetByEmailOrUsername(ctx context.Context, email, username string) (*User, error)
	GetByEmailOrUsernameTx(ctx context.Context, tx bun.IDB, email, username string) (*User, error)

	GetByVerificationToken(ctx context.Context, token string, now time.Time) (*User, error)
	GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error)
	GetByResetToken(ctx context.Context, token string, now time.Time) (*User, error)
	GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error)

	MarkVerified(ctx context.Context, id uuid.UUID) error
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// GetByIdentifier resolves the flexible login identifier: an email address
// matches the email column, anything else the username column.
func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	trimmed := strings.TrimSpace(identifier)

	column := "username"
	value := trimmed
	if isEmail(trimmed) {
		column = "email"
		value = NormalizeEmail(trimmed)
	}

	record := &User{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"identifier": identifier,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

// GetByEmailOrUsername finds a registration collision: any record claiming
// either identity.
func (a *users) GetByEmailOrUsername(ctx context.Context, email, username string) (*User, error) {
	return a.GetByEmailOrUsernameTx(ctx, a.db, email, username)
}

func (a *users) GetByEmailOrUsernameTx(ctx context.Context, tx bun.IDB, email, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.email = ? OR ?TableAlias.username = ?", NormalizeEmail(email), username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email":    NormalizeEmail(email),
					"username": username,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByVerificationToken(ctx context.Context, token string, now time.Time) (*User, error) {
	return a.GetByVerificationTokenTx(ctx, a.db, token, now)
}

// GetByVerificationTokenTx matches the exact token and its expiry in a
// single query; a miss and an expired token are indistinguishable.
func (a *users) GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error) {
	return a.getByToken(ctx, tx, "verification_token", "verification_expires_at", token, now)
}

func (a *users) GetByResetToken(ctx context.Context, token string, now time.Time) (*User, error) {
	return a.GetByResetTokenTx(ctx, a.db, token, now)
}

func (a *users) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error) {
	return a.getByToken(ctx, tx, "reset_token", "reset_expires_at", token, now)
}

func (a *users) getByToken(ctx context.Context, tx bun.IDB, tokenColumn, expiryColumn, token string, now time.Time) (*User, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	record := &User{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias."+tokenColumn+" = ?", token).
		Where("?TableAlias."+expiryColumn+" > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	return created, nil
}

func (a *users) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return a.MarkVerifiedTx(ctx, a.db, id)
}

func (a *users) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := a.Repository.RawTx(ctx, tx, VerifyUserSQL, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Username == "" {
		record.Username = usernameFromEmail(record.Email)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func usernameFromEmail(email string) string {
	if strings.Contains(email, "@") {
		return strings.Split(email, "@")[0]
	}
	return email
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// isDuplicateKeyError recognizes uniqueness violations from the sqlite and
// postgres drivers so they can surface as AccountExists.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
