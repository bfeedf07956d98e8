package query

import (
	"context"
	"testing"

	"github.com/goliatone/go-star/audit"
	"github.com/goliatone/go-star/casestudy"
	"github.com/goliatone/go-star/competency"
	"github.com/goliatone/go-star/internal/testdb"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/story"
	"github.com/goliatone/go-star/txn"
	"github.com/stretchr/testify/require"
)

func TestCoverage(t *testing.T) {
	comps := []types.Competency{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}, {ID: 4, Name: "D"}, {ID: 5, Name: "E"}, {ID: 6, Name: "F"}, {ID: 7, Name: "G"}, {ID: 8, Name: "H"}}

	cases := []struct {
		name    string
		comps   []types.Competency
		counts  map[int64]int
		covered int
		percent int
	}{
		{name: "no competencies", comps: nil, counts: map[int64]int{1: 2}, covered: 0, percent: 0},
		{name: "none covered", comps: comps[:3], counts: map[int64]int{}, covered: 0, percent: 0},
		{name: "one of three", comps: comps[:3], counts: map[int64]int{2: 5}, covered: 1, percent: 33},
		{name: "two of three", comps: comps[:3], counts: map[int64]int{1: 1, 3: 1}, covered: 2, percent: 67},
		{name: "half rounds to even", comps: comps, counts: map[int64]int{1: 1}, covered: 1, percent: 12},
		{name: "unknown ids ignored", comps: comps[:2], counts: map[int64]int{99: 3, 1: 1}, covered: 1, percent: 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stats := Coverage(tc.comps, tc.counts)
			require.Equal(t, len(tc.comps), stats.Total)
			require.Equal(t, tc.covered, stats.Covered)
			require.Equal(t, tc.percent, stats.Percentage)
			require.Len(t, stats.Competencies, len(tc.comps))
		})
	}
}

type fixture struct {
	tx           *txn.Manager
	stories      *story.Repository
	caseStudies  *casestudy.Repository
	competencies *competency.Repository
	audit        *audit.Repository
	userID       int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.New(t)
	manager, err := txn.New(txn.Config{DB: db})
	require.NoError(t, err)
	stories, err := story.NewRepository(story.RepositoryConfig{Tx: manager})
	require.NoError(t, err)
	cases, err := casestudy.NewRepository(casestudy.RepositoryConfig{Tx: manager})
	require.NoError(t, err)
	comps, err := competency.NewRepository(competency.RepositoryConfig{Tx: manager})
	require.NoError(t, err)
	auditRepo, err := audit.NewRepository(audit.RepositoryConfig{Tx: manager})
	require.NoError(t, err)
	res, err := db.ExecContext(context.Background(), `INSERT INTO users (external_id, email, display_name) VALUES ('oid', 'a@example.com', 'A')`)
	require.NoError(t, err)
	userID, err := res.LastInsertId()
	require.NoError(t, err)
	return fixture{tx: manager, stories: stories, caseStudies: cases, competencies: comps, audit: auditRepo, userID: userID}
}

func (f fixture) story(t *testing.T, competencyID int64, title string) {
	t.Helper()
	_, err := f.stories.CreateStory(context.Background(), types.StoryInput{
		UserID:       f.userID,
		CompetencyID: competencyID,
		Title:        title,
		Situation:    "situation text",
		Task:         "task text here",
		Action:       "action text here",
		Result:       "result text here",
	})
	require.NoError(t, err)
}

func TestDashboardQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	own, err := f.competencies.CreateCompetency(ctx, types.CompetencyInput{Name: "Ownership", Description: "d"})
	require.NoError(t, err)
	_, err = f.competencies.CreateCompetency(ctx, types.CompetencyInput{Name: "Leadership", Description: "d"})
	require.NoError(t, err)
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		f.story(t, own.ID, title)
	}
	_, err = f.caseStudies.CreateCaseStudy(ctx, types.CaseStudyInput{UserID: f.userID, Title: "Case", Description: "d"})
	require.NoError(t, err)
	require.NoError(t, f.audit.Log(ctx, types.AuditRecord{UserID: f.userID, Action: "login"}))

	q := NewDashboardQuery(DashboardConfig{
		Stories:      f.stories,
		CaseStudies:  f.caseStudies,
		Competencies: f.competencies,
		Audit:        f.audit,
		Tx:           f.tx,
	})
	dash, err := q.Query(ctx, DashboardInput{UserID: f.userID})
	require.NoError(t, err)
	require.Equal(t, 4, dash.StoryCount)
	require.Equal(t, 1, dash.CaseStudyCount)
	require.Equal(t, 2, dash.CompetencyCount)
	require.Len(t, dash.RecentStories, DefaultDashboardRecent)
	require.Len(t, dash.RecentActivity, 1)
	require.Equal(t, 1, dash.Coverage.Covered)
	require.Equal(t, 50, dash.Coverage.Percentage)

	_, err = q.Query(ctx, DashboardInput{})
	require.ErrorIs(t, err, ErrUserIDRequired)
}

func TestStoryListQuery_FiltersByCompetencyAndOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	own, err := f.competencies.CreateCompetency(ctx, types.CompetencyInput{Name: "Ownership", Description: "d"})
	require.NoError(t, err)
	f.story(t, own.ID, "Tagged")
	f.story(t, 0, "Untagged")

	q := NewStoryListQuery(f.stories)
	all, err := q.Query(ctx, StoryListInput{UserID: f.userID})
	require.NoError(t, err)
	require.Len(t, all, 2)

	tagged, err := q.Query(ctx, StoryListInput{UserID: f.userID, CompetencyID: own.ID})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	require.Equal(t, "Tagged", tagged[0].Title)

	none, err := q.Query(ctx, StoryListInput{UserID: f.userID + 1, CompetencyID: own.ID})
	require.NoError(t, err)
	require.Empty(t, none)
}

type recordingAuditRepo struct {
	last types.AuditFilter
}

func (r *recordingAuditRepo) RecentAudit(_ context.Context, filter types.AuditFilter) ([]types.AuditRecord, error) {
	r.last = filter
	return nil, nil
}

func (r *recordingAuditRepo) AuditByUser(context.Context, int64) ([]types.AuditRecord, error) {
	return nil, nil
}

func TestAuditLogQuery_NormalizesLimit(t *testing.T) {
	repo := &recordingAuditRepo{}
	q := NewAuditLogQuery(repo)

	_, err := q.Query(context.Background(), AuditLogInput{Action: " login "})
	require.NoError(t, err)
	require.Equal(t, defaultAuditLimit, repo.last.Limit)
	require.Equal(t, "login", repo.last.Action)

	_, err = q.Query(context.Background(), AuditLogInput{Limit: 5000})
	require.NoError(t, err)
	require.Equal(t, maxAuditLimit, repo.last.Limit)
}

func TestAuditSummaryQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, action := range []string{"login", "login", "evaluate_story"} {
		require.NoError(t, f.audit.Log(ctx, types.AuditRecord{UserID: f.userID, Action: action}))
	}
	counts, err := NewAuditSummaryQuery(f.audit).Query(ctx, AuditSummaryInput{UserID: f.userID})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"login": 2, "evaluate_story": 1}, counts)

	_, err = NewAuditSummaryQuery(nil).Query(ctx, AuditSummaryInput{})
	require.ErrorIs(t, err, ErrMissingActionCounter)
}
