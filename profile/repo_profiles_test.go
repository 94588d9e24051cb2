package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/vitalscan/backend/profile"
	"github.com/vitalscan/backend/storage"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := storage.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.CreateSchema(context.Background(), db))
	return db
}

func TestProfilesUpsertCreatesOnFirstUse(t *testing.T) {
	repo := profile.NewProfilesRepository(openTestDB(t))
	ctx := context.Background()

	userID := uuid.New()

	_, err := repo.GetByUserID(ctx, userID)
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	created, err := repo.Upsert(ctx, &profile.Profile{
		UserID:   userID,
		FullName: "Alice Example",
		Sex:      "female",
		HeightCm: 168,
		WeightKg: 61.5,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Example", found.FullName)
	assert.Equal(t, 168.0, found.HeightCm)
}

func TestProfilesUpsertUpdatesInPlace(t *testing.T) {
	repo := profile.NewProfilesRepository(openTestDB(t))
	ctx := context.Background()

	userID := uuid.New()
	birthDate := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)

	created, err := repo.Upsert(ctx, &profile.Profile{
		UserID:   userID,
		FullName: "Bob Example",
		Sex:      "male",
	})
	require.NoError(t, err)

	updated, err := repo.Upsert(ctx, &profile.Profile{
		UserID:    userID,
		FullName:  "Robert Example",
		Sex:       "male",
		BirthDate: &birthDate,
		Phone:     "+14155552671",
	})
	require.NoError(t, err)

	// The row identity and creation time survive the rewrite.
	assert.Equal(t, created.ID, updated.ID)
	assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Second)

	found, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Robert Example", found.FullName)
	assert.Equal(t, "+14155552671", found.Phone)
	require.NotNil(t, found.BirthDate)
	assert.Equal(t, birthDate.Year(), found.BirthDate.Year())
}

func TestProfilesOneRowPerUser(t *testing.T) {
	db := openTestDB(t)
	repo := profile.NewProfilesRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := repo.Upsert(ctx, &profile.Profile{UserID: userID, FullName: "Repeat"})
		require.NoError(t, err)
	}

	count, err := db.NewSelect().Model((*profile.Profile)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
