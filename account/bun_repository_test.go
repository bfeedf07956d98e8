package account

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-star/internal/testdb"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type frozenClock struct{ t time.Time }

func (c frozenClock) Now() time.Time { return c.t }

func newRepo(t *testing.T, db *bun.DB) *Repository {
	t.Helper()
	repo, err := NewRepository(RepositoryConfig{
		DB:    db,
		Clock: frozenClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	return repo
}

func TestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, testdb.New(t))

	created, err := repo.CreateUser(ctx, types.UserInput{
		ExternalID:  "oid-1",
		Email:       "Ada@Example.com",
		DisplayName: "Ada",
		IsAdmin:     true,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.IsActive)

	fetched, err := repo.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, created.ExternalID, fetched.ExternalID)
	require.Equal(t, created.Email, fetched.Email)
	require.Equal(t, created.DisplayName, fetched.DisplayName)
	require.Equal(t, created.IsAdmin, fetched.IsAdmin)
	require.Equal(t, created.IsActive, fetched.IsActive)
	require.True(t, created.CreatedAt.Equal(fetched.CreatedAt))
	require.True(t, created.UpdatedAt.Equal(fetched.UpdatedAt))

	byExternal, err := repo.GetUserByExternalID(ctx, "oid-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, byExternal.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)
}

func TestRepository_GetMissingReturnsNil(t *testing.T) {
	repo := newRepo(t, testdb.New(t))

	user, err := repo.GetUserByID(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, user)

	updated, err := repo.UpdateUser(context.Background(), 42, types.UserPatch{DisplayName: strPtr("x")})
	require.NoError(t, err)
	require.Nil(t, updated)

	removed, err := repo.DeleteUser(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestRepository_DuplicateExternalIDIsIntegrityViolation(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, testdb.New(t))

	_, err := repo.CreateUser(ctx, types.UserInput{ExternalID: "oid", Email: "a@example.com", DisplayName: "A"})
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, types.UserInput{ExternalID: "oid", Email: "b@example.com", DisplayName: "B"})
	require.ErrorIs(t, err, types.ErrIntegrityViolation)

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRepository_UpdateTouchesOnlyPatchedFields(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, testdb.New(t))

	created, err := repo.CreateUser(ctx, types.UserInput{ExternalID: "oid", Email: "a@example.com", DisplayName: "Before"})
	require.NoError(t, err)

	updated, err := repo.UpdateUser(ctx, created.ID, types.UserPatch{DisplayName: strPtr("After")})
	require.NoError(t, err)
	require.Equal(t, "After", updated.DisplayName)
	require.Equal(t, created.Email, updated.Email)
	require.Equal(t, created.ExternalID, updated.ExternalID)
	require.Equal(t, created.IsAdmin, updated.IsAdmin)
	require.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	fetched, err := repo.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "After", fetched.DisplayName)
	require.True(t, updated.UpdatedAt.Equal(fetched.UpdatedAt))
}

func TestRepository_ToggleAdmin(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, testdb.New(t))

	created, err := repo.CreateUser(ctx, types.UserInput{ExternalID: "oid", Email: "a@example.com", DisplayName: "A"})
	require.NoError(t, err)
	require.False(t, created.IsAdmin)

	toggled, err := repo.ToggleAdmin(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, toggled.IsAdmin)

	toggled, err = repo.ToggleAdmin(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsAdmin)
}

func TestRepository_ListOrderedByDisplayName(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, testdb.New(t))

	for _, name := range []string{"Carol", "Alice", "Bob"} {
		_, err := repo.CreateUser(ctx, types.UserInput{ExternalID: name, Email: name + "@example.com", DisplayName: name})
		require.NoError(t, err)
	}
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.Equal(t, []string{"Alice", "Bob", "Carol"}, []string{users[0].DisplayName, users[1].DisplayName, users[2].DisplayName})

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestRepository_DeleteCascadesOwnedRecordsButKeepsAudit(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := newRepo(t, db)

	user, err := repo.CreateUser(ctx, types.UserInput{ExternalID: "oid", Email: "a@example.com", DisplayName: "A"})
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO star_stories (user_id, title, situation, task, action, result) VALUES (?, 'T', 's', 't', 'a', 'r')`, user.ID)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO case_studies (user_id, title, description) VALUES (?, 'T', 'd')`, user.ID)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO audit_logs (user_id, action, entity_type) VALUES (?, 'login', 'user')`, user.ID)
	require.NoError(t, err)

	removed, err := repo.DeleteUser(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, removed)

	for table, want := range map[string]int{"star_stories": 0, "case_studies": 0, "audit_logs": 1} {
		n, err := db.NewSelect().TableExpr(table).Where("user_id = ?", user.ID).Count(ctx)
		require.NoError(t, err)
		require.Equal(t, want, n, table)
	}
}

func strPtr(v string) *string { return &v }
