package story

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-star/competency"
	"github.com/goliatone/go-star/internal/testdb"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	db    *bun.DB
	repo  *Repository
	comps *competency.Repository
	user  int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.New(t)
	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)
	comps, err := competency.NewRepository(competency.RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)
	res, err := db.ExecContext(context.Background(), `INSERT INTO users (external_id, email, display_name) VALUES ('oid', 'a@example.com', 'A')`)
	require.NoError(t, err)
	userID, err := res.LastInsertId()
	require.NoError(t, err)
	return fixture{db: db, repo: repo, comps: comps, user: userID}
}

func (f fixture) input(title string, competencyID int64) types.StoryInput {
	return types.StoryInput{
		UserID:       f.user,
		CompetencyID: competencyID,
		Title:        title,
		Situation:    "The release pipeline was failing nightly.",
		Task:         "Restore a reliable release cadence.",
		Action:       "Rewrote the flaky integration suite.",
		Result:       "Nightly releases went green for a quarter.",
	}
}

func TestRepository_ListResolvesCompetencyName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	comp, err := f.comps.CreateCompetency(ctx, types.CompetencyInput{Name: "Ownership", Description: "Takes initiative"})
	require.NoError(t, err)

	created, err := f.repo.CreateStory(ctx, f.input("Launch", comp.ID))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "Ownership", created.CompetencyName)

	stories, err := f.repo.ListStoriesByUser(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	require.Equal(t, "Launch", stories[0].Title)
	require.Equal(t, "Ownership", stories[0].CompetencyName)
}

func TestRepository_CreateAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.repo.CreateStory(ctx, f.input("No competency", 0))
	require.NoError(t, err)
	require.False(t, created.HasCompetency())

	fetched, err := f.repo.GetStoryByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, created.Title, fetched.Title)
	require.Equal(t, created.Situation, fetched.Situation)
	require.Equal(t, created.Task, fetched.Task)
	require.Equal(t, created.Action, fetched.Action)
	require.Equal(t, created.Result, fetched.Result)
	require.Empty(t, fetched.CompetencyName)
	require.True(t, created.UpdatedAt.Equal(fetched.UpdatedAt))

	missing, err := f.repo.GetStoryByID(ctx, created.ID+1)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRepository_UnknownCompetencyIsIntegrityViolation(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.CreateStory(context.Background(), f.input("Bad ref", 999))
	require.ErrorIs(t, err, types.ErrIntegrityViolation)
}

func TestRepository_UpdateOnlyPatchedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.repo.CreateStory(ctx, f.input("Before", 0))
	require.NoError(t, err)

	feedback := "Strong result section."
	updated, err := f.repo.UpdateStory(ctx, created.ID, types.StoryPatch{AIFeedback: &feedback})
	require.NoError(t, err)
	require.Equal(t, feedback, updated.AIFeedback)
	require.Equal(t, created.Title, updated.Title)
	require.Equal(t, created.Situation, updated.Situation)
	require.Equal(t, created.Result, updated.Result)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	comp, err := f.comps.CreateCompetency(ctx, types.CompetencyInput{Name: "Delivery", Description: "Ships"})
	require.NoError(t, err)
	updated, err = f.repo.UpdateStory(ctx, created.ID, types.StoryPatch{CompetencyID: &comp.ID})
	require.NoError(t, err)
	require.Equal(t, "Delivery", updated.CompetencyName)

	var none int64
	updated, err = f.repo.UpdateStory(ctx, created.ID, types.StoryPatch{CompetencyID: &none})
	require.NoError(t, err)
	require.False(t, updated.HasCompetency())

	missing, err := f.repo.UpdateStory(ctx, created.ID+10, types.StoryPatch{AIFeedback: &feedback})
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRepository_RecentAndCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	comp, err := f.comps.CreateCompetency(ctx, types.CompetencyInput{Name: "Ownership", Description: "Takes initiative"})
	require.NoError(t, err)

	var ids []int64
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		created, err := f.repo.CreateStory(ctx, f.input(title, comp.ID))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	retitled := "One again"
	_, err = f.repo.UpdateStory(ctx, ids[0], types.StoryPatch{Title: &retitled})
	require.NoError(t, err)

	recent, err := f.repo.RecentStoriesByUser(ctx, f.user, 0)
	require.NoError(t, err)
	require.Len(t, recent, DefaultRecentLimit)
	require.Equal(t, "One again", recent[0].Title)
	require.Equal(t, "Four", recent[1].Title)

	count, err := f.repo.CountStoriesByUser(ctx, f.user)
	require.NoError(t, err)
	require.Equal(t, 4, count)

	counts, err := f.repo.CompetencyStoryCounts(ctx, f.user)
	require.NoError(t, err)
	require.Equal(t, map[int64]int{comp.ID: 4}, counts)

	byComp, err := f.repo.ListStoriesByCompetency(ctx, comp.ID)
	require.NoError(t, err)
	require.Len(t, byComp, 4)
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.repo.CreateStory(ctx, f.input("Gone soon", 0))
	require.NoError(t, err)

	removed, err := f.repo.DeleteStory(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = f.repo.DeleteStory(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestRepository_ConcurrentUpdatesLastWriteWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.repo.CreateStory(ctx, f.input("Start", 0))
	require.NoError(t, err)

	results := make(map[string]time.Time)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, title := range []string{"A", "B"} {
		wg.Add(1)
		go func(title string) {
			defer wg.Done()
			updated, err := f.repo.UpdateStory(ctx, created.ID, types.StoryPatch{Title: &title})
			require.NoError(t, err)
			mu.Lock()
			results[title] = updated.UpdatedAt
			mu.Unlock()
		}(title)
	}
	wg.Wait()

	final, err := f.repo.GetStoryByID(ctx, created.ID)
	require.NoError(t, err)
	require.Contains(t, []string{"A", "B"}, final.Title)
	require.True(t, results[final.Title].Equal(final.UpdatedAt))
}
