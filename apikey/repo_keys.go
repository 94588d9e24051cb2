package apikey

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RevokeKeySQL stamps the revocation time without touching the digest, so a
// revoked key keeps its audit trail.
var RevokeKeySQL = `UPDATE "api_keys" AS "key"
SET
	"revoked_at" = CURRENT_TIMESTAMP
WHERE
	"key"."id" = ?
	AND "key"."user_id" = ?
	AND "key"."revoked_at" IS NULL
RETURNING *;`

type Keys interface {
	repository.Repository[*Key]

	Create(ctx context.Context, record *Key, criteria ...repository.InsertCriteria) (*Key, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Key, criteria ...repository.InsertCriteria) (*Key, error)

	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Key, error)
	ListByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*Key, error)

	GetByPrefix(ctx context.Context, prefix string) (*Key, error)
	GetByPrefixTx(ctx context.Context, tx bun.IDB, prefix string) (*Key, error)

	Revoke(ctx context.Context, userID, id uuid.UUID) error
	RevokeTx(ctx context.Context, tx bun.IDB, userID, id uuid.UUID) error

	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type keys struct {
	repository.Repository[*Key]
	db *bun.DB
}

var _ Keys = (*keys)(nil)

func NewKeysRepository(db *bun.DB) Keys {
	repo := repository.NewRepository[*Key](db, repository.ModelHandlers[*Key]{
		NewRecord: func() *Key { return &Key{} },
		GetID: func(k *Key) uuid.UUID {
			if k == nil {
				return uuid.Nil
			}
			return k.ID
		},
		SetID: func(k *Key, id uuid.UUID) {
			if k != nil {
				k.ID = id
			}
		},
		GetIdentifier: func() string {
			return "prefix"
		},
	})

	return &keys{
		Repository: repo,
		db:         db,
	}
}

func (r *keys) Create(ctx context.Context, record *Key, criteria ...repository.InsertCriteria) (*Key, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *keys) CreateTx(ctx context.Context, tx bun.IDB, record *Key, criteria ...repository.InsertCriteria) (*Key, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *keys) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Key, error) {
	return r.ListByUserIDTx(ctx, r.db, userID)
}

func (r *keys) ListByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*Key, error) {
	records := []*Key{}
	err := tx.NewSelect().Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *keys) GetByPrefix(ctx context.Context, prefix string) (*Key, error) {
	return r.GetByPrefixTx(ctx, r.db, prefix)
}

func (r *keys) GetByPrefixTx(ctx context.Context, tx bun.IDB, prefix string) (*Key, error) {
	record := &Key{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.prefix = ?", prefix).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrKeyInvalid
		}
		return nil, err
	}

	return record, nil
}

func (r *keys) Revoke(ctx context.Context, userID, id uuid.UUID) error {
	return r.RevokeTx(ctx, r.db, userID, id)
}

// RevokeTx is scoped to the owner; revoking a foreign or unknown key reports
// not found.
func (r *keys) RevokeTx(ctx context.Context, tx bun.IDB, userID, id uuid.UUID) error {
	res, err := r.Repository.RawTx(ctx, tx, RevokeKeySQL, id.String(), userID.String())
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

func (r *keys) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.NewUpdate().Model((*Key)(nil)).
		Set("last_used_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// Authenticate resolves a presented token to a usable key: prefix lookup,
// constant-time secret comparison, then revocation and expiry checks. Every
// failure surfaces as the same ErrKeyInvalid.
func Authenticate(ctx context.Context, repo Keys, token string, now time.Time) (*Key, error) {
	prefix, secret, err := SplitToken(token)
	if err != nil {
		return nil, err
	}

	record, err := repo.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	if !record.VerifySecret(secret) {
		return nil, ErrKeyInvalid
	}

	if !record.Usable(now) {
		return nil, ErrKeyInvalid
	}

	return record, nil
}
