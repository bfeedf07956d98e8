package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-star/internal/testdb"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID          int64     `bun:"id,pk,autoincrement"`
	ExternalID  string    `bun:"external_id"`
	Email       string    `bun:"email"`
	DisplayName string    `bun:"display_name"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`
}

func newRow(ext string) *userRow {
	now := time.Now().UTC()
	return &userRow{ExternalID: ext, Email: ext + "@example.com", DisplayName: ext, CreatedAt: now, UpdatedAt: now}
}

func countUsers(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*userRow)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := testdb.New(t)
	mgr, err := New(Config{DB: db})
	require.NoError(t, err)

	err = mgr.WithTx(context.Background(), func(ctx context.Context, tx bun.IDB) error {
		_, err := tx.NewInsert().Model(newRow("a")).Exec(ctx)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countUsers(t, db))
}

func TestWithTx_RollsBackAndPropagatesBodyError(t *testing.T) {
	db := testdb.New(t)
	mgr, err := New(Config{DB: db})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = mgr.WithTx(context.Background(), func(ctx context.Context, tx bun.IDB) error {
		if _, err := tx.NewInsert().Model(newRow("a")).Exec(ctx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Same(t, boom, err)
	require.Equal(t, 0, countUsers(t, db))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := testdb.New(t)
	mgr, err := New(Config{DB: db})
	require.NoError(t, err)

	require.Panics(t, func() {
		_ = mgr.WithTx(context.Background(), func(ctx context.Context, tx bun.IDB) error {
			if _, err := tx.NewInsert().Model(newRow("a")).Exec(ctx); err != nil {
				return err
			}
			panic("boom")
		})
	})
	require.Equal(t, 0, countUsers(t, db))
}

func TestWithTx_NestedCallsJoinOuterTransaction(t *testing.T) {
	db := testdb.New(t)
	mgr, err := New(Config{DB: db})
	require.NoError(t, err)

	boom := errors.New("outer failure")
	err = mgr.WithTx(context.Background(), func(ctx context.Context, outer bun.IDB) error {
		inner := mgr.WithTx(ctx, func(ctx context.Context, tx bun.IDB) error {
			_, ok := FromContext(ctx)
			require.True(t, ok)
			_, err := tx.NewInsert().Model(newRow("nested")).Exec(ctx)
			return err
		})
		require.NoError(t, inner)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, countUsers(t, db))
}

func TestWithTx_DuplicateKeyIsIntegrityViolation(t *testing.T) {
	db := testdb.New(t)
	mgr, err := New(Config{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.WithTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		_, err := tx.NewInsert().Model(newRow("dup")).Exec(ctx)
		return err
	}))

	err = mgr.WithTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if _, err := tx.NewInsert().Model(newRow("other")).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(newRow("dup")).Exec(ctx)
		return err
	})
	require.ErrorIs(t, err, types.ErrIntegrityViolation)
	require.Equal(t, 1, countUsers(t, db))
}

func TestWithTx_ClosedDatabaseIsStorageUnavailable(t *testing.T) {
	db := testdb.New(t)
	mgr, err := New(Config{DB: db})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = mgr.WithTx(context.Background(), func(ctx context.Context, tx bun.IDB) error {
		return nil
	})
	require.ErrorIs(t, err, types.ErrStorageUnavailable)
}

func TestClassify_LeavesOtherErrorsUntouched(t *testing.T) {
	plain := errors.New("plain")
	require.Same(t, plain, Classify(plain, "sqlite"))
	require.NoError(t, Classify(nil, "sqlite"))
	require.ErrorIs(t, Classify(context.Canceled, "sqlite"), context.Canceled)
}
