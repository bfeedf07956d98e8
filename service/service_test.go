package service

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/command"
	"github.com/goliatone/go-star/internal/testdb"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/query"
	"github.com/stretchr/testify/require"
)

type cannedProvider struct{ reply string }

func (cannedProvider) Name() string             { return "canned" }
func (cannedProvider) SupportsStructured() bool { return false }
func (cannedProvider) SupportsVision() bool     { return false }

func (p cannedProvider) Complete(context.Context, ai.Request) (ai.Response, error) {
	return ai.Response{Text: p.reply}, nil
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("connection refused") }

func newService(t *testing.T) *Service {
	t.Helper()
	cfg, err := NewBunConfig(testdb.New(t), BunOptions{})
	require.NoError(t, err)
	cfg.AI = ai.New(ai.Config{Provider: cannedProvider{reply: "Solid story with a measurable result."}})
	return New(cfg)
}

func TestService_HealthCheck(t *testing.T) {
	svc := newService(t)
	require.True(t, svc.Ready())
	require.NoError(t, svc.HealthCheck(context.Background()))

	empty := New(Config{})
	require.False(t, empty.Ready())
	require.ErrorIs(t, empty.HealthCheck(context.Background()), types.ErrMissingUserRepository)

	cfg := svc.cfg
	cfg.DB = failingPinger{}
	require.ErrorIs(t, New(cfg).HealthCheck(context.Background()), types.ErrStorageUnavailable)

	var nilSvc *Service
	require.ErrorIs(t, nilSvc.HealthCheck(context.Background()), types.ErrServiceNotReady)
}

func TestService_LoginWriteEvaluateDashboard(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	cmds := svc.Commands()

	var login types.LoginEvent
	require.NoError(t, cmds.SyncLogin.Execute(ctx, command.SyncLoginInput{
		Claims: command.IdentityClaims{ExternalID: "oid", Mail: "ada@example.com", DisplayName: "Ada"},
		Result: &login,
	}))
	userID := login.User.ID

	var seeded int
	require.NoError(t, cmds.SeedCompetencies.Execute(ctx, command.SeedCompetenciesInput{ActorID: userID, Result: &seeded}))
	require.Positive(t, seeded)

	comps, err := svc.Queries().Competencies.Query(ctx, query.CompetencyListInput{})
	require.NoError(t, err)
	require.Len(t, comps, seeded)

	var created types.Story
	require.NoError(t, cmds.StoryCreate.Execute(ctx, command.StoryCreateInput{
		Story: types.StoryInput{
			UserID:       userID,
			CompetencyID: comps[0].ID,
			Title:        "Launch",
			Situation:    "The launch was slipping badly.",
			Task:         "Bring the launch back on schedule.",
			Action:       "Cut scope and paired with the team.",
			Result:       "Shipped on the original date.",
		},
		Result: &created,
	}))

	var eval ai.EvaluationResult
	require.NoError(t, cmds.EvaluateStory.Execute(ctx, command.EvaluateStoryInput{UserID: userID, StoryID: created.ID, Result: &eval}))
	require.False(t, eval.Failed())

	dash, err := svc.Queries().Dashboard.Query(ctx, query.DashboardInput{UserID: userID})
	require.NoError(t, err)
	require.Equal(t, 1, dash.StoryCount)
	require.Equal(t, 1, dash.Coverage.Covered)
	require.Equal(t, "Solid story with a measurable result.", dash.RecentStories[0].AIFeedback)

	summary, err := svc.Queries().AuditSummary.Query(ctx, query.AuditSummaryInput{UserID: userID})
	require.NoError(t, err)
	require.Equal(t, 1, summary[command.ActionLogin])
	require.Equal(t, 1, summary[command.ActionStoryCreated])
	require.Equal(t, 1, summary[command.ActionEvaluateStory])
	require.Equal(t, 1, summary[command.ActionCompetenciesSeeded])
}
