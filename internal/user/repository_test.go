package user

import (
	"context"
	"testing"
	"time"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/platform/database"
	"mugo_plumbing_backend/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", "silent")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { database.CloseGORMDB(db) })
	return db
}

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, db *gorm.DB, id string, role shared.Role) *User {
	t.Helper()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	u := &User{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: "User " + id,
		Role:        role,
		Location:    strPtr("Harare"),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestGORMRepository_FindByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	seedUser(t, db, "c1", shared.RoleClient)

	got, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1@example.com", got.Email)
	assert.Equal(t, shared.RoleClient, got.Role)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Harare", *got.Location)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGORMRepository_UpdateIsPartial(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	orig := seedUser(t, db, "c1", shared.RoleClient)

	later := orig.UpdatedAt.Add(time.Hour)
	got, err := repo.Update(context.Background(), "c1", Patch{Phone: strPtr("+263 77 000 0000"), UpdatedAt: later})
	require.NoError(t, err)

	require.NotNil(t, got.Phone)
	assert.Equal(t, "+263 77 000 0000", *got.Phone)
	assert.Equal(t, orig.DisplayName, got.DisplayName)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Harare", *got.Location)
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.True(t, got.CreatedAt.Equal(orig.CreatedAt))
}

func TestGORMRepository_UpdateMissing(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	_, err := repo.Update(context.Background(), "ghost", Patch{DisplayName: strPtr("x"), UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDoc_ToDomain(t *testing.T) {
	now := time.Now().UTC()
	good := Doc{Email: "p@example.com", DisplayName: "Pat", UserType: "provider", CreatedAt: now, UpdatedAt: now}

	u, err := good.ToDomain("p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", u.ID)
	assert.Equal(t, shared.RoleProvider, u.Role)

	tests := []struct {
		name string
		doc  Doc
	}{
		{"missing email", Doc{UserType: "client", CreatedAt: now}},
		{"unknown user type", Doc{Email: "a@b.c", UserType: "superuser", CreatedAt: now}},
		{"missing createdAt", Doc{Email: "a@b.c", UserType: "client"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.ToDomain("x")
			assert.ErrorIs(t, err, common.ErrRemoteFailure)
		})
	}
}

func TestNewDoc_RoundTrip(t *testing.T) {
	now := time.Now().UTC()
	u := &User{ID: "p1", Email: "p@example.com", DisplayName: "Pat", Role: shared.RoleProvider,
		BusinessName: strPtr("Pat Plumbing"), ServiceArea: strPtr("Harare"), CreatedAt: now, UpdatedAt: now}

	back, err := NewDoc(u).ToDomain("p1")
	require.NoError(t, err)
	assert.Equal(t, u, back)
}
