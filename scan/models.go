// Package scan persists biometric scan results. The vitals payload comes
// from an external inference model and is stored verbatim; no inference
// happens here.
package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Result struct {
	bun.BaseModel `bun:"table:scan_results,alias:scn"`

	ID         uuid.UUID      `bun:"id,pk,notnull" json:"id"`
	UserID     uuid.UUID      `bun:"user_id,notnull" json:"userId"`
	Kind       string         `bun:"kind,notnull" json:"kind"`
	Vitals     map[string]any `bun:"vitals" json:"vitals"`
	CapturedAt time.Time      `bun:"captured_at,notnull" json:"capturedAt"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

var _ bun.BeforeAppendModelHook = (*Result)(nil)

func (r *Result) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		if r.CapturedAt.IsZero() {
			r.CapturedAt = r.CreatedAt
		}
	}
	return nil
}
