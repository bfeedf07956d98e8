package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-star/internal/testdb"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/txn"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newRepo(t *testing.T) (*Repository, *bun.DB) {
	t.Helper()
	db := testdb.New(t)
	repo, err := NewRepository(RepositoryConfig{
		DB:    db,
		Clock: &tickClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	return repo, db
}

func TestRepository_LogAndRecent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	require.NoError(t, repo.Log(ctx, types.AuditRecord{UserID: 1, Action: "login", EntityType: "user", EntityID: 1}))
	require.NoError(t, repo.Log(ctx, types.AuditRecord{UserID: 1, Action: "evaluate_story", EntityType: "star_story", EntityID: 7, Details: "Evaluated STAR story: Launch"}))
	require.NoError(t, repo.Log(ctx, types.AuditRecord{UserID: 2, Action: "login", EntityType: "user", EntityID: 2}))

	recent, err := repo.RecentAudit(ctx, types.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, int64(2), recent[0].UserID)
	require.Equal(t, "login", recent[2].Action)

	mine, err := repo.RecentAudit(ctx, types.AuditFilter{UserID: 1, Action: "evaluate_story"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, int64(7), mine[0].EntityID)
	require.Equal(t, "Evaluated STAR story: Launch", mine[0].Details)

	limited, err := repo.RecentAudit(ctx, types.AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	byUser, err := repo.AuditByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	require.Equal(t, "evaluate_story", byUser[0].Action)

	counts, err := repo.ActionCounts(ctx, types.AuditFilter{})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"login": 2, "evaluate_story": 1}, counts)
}

func TestRepository_LogMasksSensitiveData(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	require.NoError(t, repo.Log(ctx, types.AuditRecord{
		UserID:     1,
		Action:     "general_query",
		EntityType: "ai_query",
		Data:       map[string]any{"password": "secret-value", "model": "gpt-4o"},
	}))

	rows, err := repo.AuditByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotEqual(t, "secret-value", rows[0].Data["password"])
}

func TestRepository_LogJoinsAmbientTransaction(t *testing.T) {
	ctx := context.Background()
	repo, db := newRepo(t)
	manager, err := txn.New(txn.Config{DB: db})
	require.NoError(t, err)

	err = manager.WithTx(ctx, func(ctx context.Context, _ bun.IDB) error {
		if err := repo.Log(ctx, types.AuditRecord{UserID: 3, Action: "story_created", EntityType: "star_story"}); err != nil {
			return err
		}
		return types.ErrValidation
	})
	require.ErrorIs(t, err, types.ErrValidation)

	rows, err := repo.AuditByUser(ctx, 3)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestSanitizeRecord_NoDataIsUntouched(t *testing.T) {
	record := types.AuditRecord{Action: "login"}
	out := SanitizeRecord(nil, record)
	require.Nil(t, out.Data)
	require.Equal(t, "login", out.Action)
}
