package scan

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Results interface {
	repository.Repository[*Result]

	Record(ctx context.Context, record *Result) (*Result, error)
	RecordTx(ctx context.Context, tx bun.IDB, record *Result) (*Result, error)

	ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*Result, error)
	ListByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, limit int) ([]*Result, error)

	GetOwned(ctx context.Context, userID, id uuid.UUID) (*Result, error)
	GetOwnedTx(ctx context.Context, tx bun.IDB, userID, id uuid.UUID) (*Result, error)
}

type results struct {
	repository.Repository[*Result]
	db *bun.DB
}

var _ Results = (*results)(nil)

func NewResultsRepository(db *bun.DB) Results {
	repo := repository.NewRepository[*Result](db, repository.ModelHandlers[*Result]{
		NewRecord: func() *Result { return &Result{} },
		GetID: func(r *Result) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Result, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &results{
		Repository: repo,
		db:         db,
	}
}

func (r *results) Record(ctx context.Context, record *Result) (*Result, error) {
	return r.RecordTx(ctx, r.db, record)
}

func (r *results) RecordTx(ctx context.Context, tx bun.IDB, record *Result) (*Result, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *results) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*Result, error) {
	return r.ListByUserIDTx(ctx, r.db, userID, limit)
}

// ListByUserIDTx returns the caller's results newest-first.
func (r *results) ListByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	records := []*Result{}
	err := tx.NewSelect().Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.captured_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *results) GetOwned(ctx context.Context, userID, id uuid.UUID) (*Result, error) {
	return r.GetOwnedTx(ctx, r.db, userID, id)
}

// GetOwnedTx scopes the lookup to the owner, so another user's result is
// indistinguishable from a missing one.
func (r *results) GetOwnedTx(ctx context.Context, tx bun.IDB, userID, id uuid.UUID) (*Result, error) {
	record := &Result{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}
