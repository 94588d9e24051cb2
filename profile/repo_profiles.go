package profile

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Profiles interface {
	repository.Repository[*Profile]

	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error)

	Upsert(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var _ Profiles = (*profiles)(nil)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (r *profiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return r.GetByUserIDTx(ctx, r.db, userID)
}

func (r *profiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *profiles) Upsert(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	return r.UpsertTx(ctx, r.db, record, criteria...)
}

// UpsertTx writes the caller's profile, creating it on first use. Each user
// has at most one row, keyed by user_id.
func (r *profiles) UpsertTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	existing, err := r.GetByUserIDTx(ctx, tx, record.UserID)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			return nil, err
		}

		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		return r.Repository.CreateTx(ctx, tx, record)
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt

	return r.Repository.UpdateTx(ctx, tx, record, append([]repository.UpdateCriteria{repository.UpdateByID(existing.ID.String())}, criteria...)...)
}
