package command

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-star/account"
	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/audit"
	"github.com/goliatone/go-star/casestudy"
	"github.com/goliatone/go-star/competency"
	"github.com/goliatone/go-star/imagestore"
	"github.com/goliatone/go-star/internal/testdb"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/story"
	"github.com/goliatone/go-star/txn"
	"github.com/stretchr/testify/require"
)

type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type env struct {
	tx           *txn.Manager
	clock        *tickClock
	users        *account.Repository
	competencies *competency.Repository
	stories      *story.Repository
	caseStudies  *casestudy.Repository
	audit        *audit.Repository
	images       *imagestore.Filesystem
	imagesRoot   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testdb.New(t)
	clock := &tickClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	manager, err := txn.New(txn.Config{DB: db})
	require.NoError(t, err)
	users, err := account.NewRepository(account.RepositoryConfig{Tx: manager, Clock: clock})
	require.NoError(t, err)
	comps, err := competency.NewRepository(competency.RepositoryConfig{Tx: manager, Clock: clock})
	require.NoError(t, err)
	stories, err := story.NewRepository(story.RepositoryConfig{Tx: manager, Clock: clock})
	require.NoError(t, err)
	cases, err := casestudy.NewRepository(casestudy.RepositoryConfig{Tx: manager, Clock: clock})
	require.NoError(t, err)
	auditRepo, err := audit.NewRepository(audit.RepositoryConfig{Tx: manager, Clock: clock})
	require.NoError(t, err)
	root := t.TempDir()
	images, err := imagestore.NewFilesystem(root)
	require.NoError(t, err)
	return env{
		tx:           manager,
		clock:        clock,
		users:        users,
		competencies: comps,
		stories:      stories,
		caseStudies:  cases,
		audit:        auditRepo,
		images:       images,
		imagesRoot:   root,
	}
}

func (e env) userConfig() UserCommandConfig {
	return UserCommandConfig{
		Users:       e.users,
		Audit:       e.audit,
		Tx:          e.tx,
		Clock:       e.clock,
		CaseStudies: e.caseStudies,
		Images:      e.images,
	}
}

func (e env) competencyConfig() CompetencyCommandConfig {
	return CompetencyCommandConfig{Competencies: e.competencies, Audit: e.audit, Tx: e.tx, Clock: e.clock}
}

func (e env) storyConfig() StoryCommandConfig {
	return StoryCommandConfig{Stories: e.stories, Audit: e.audit, Tx: e.tx, Clock: e.clock}
}

func (e env) caseStudyConfig() CaseStudyCommandConfig {
	return CaseStudyCommandConfig{CaseStudies: e.caseStudies, Images: e.images, Audit: e.audit, Tx: e.tx, Clock: e.clock}
}

func (e env) aiConfig(orchestrator *ai.Orchestrator) AICommandConfig {
	return AICommandConfig{
		AI:           orchestrator,
		Stories:      e.stories,
		Competencies: e.competencies,
		CaseStudies:  e.caseStudies,
		Images:       e.images,
		Audit:        e.audit,
		Tx:           e.tx,
		Clock:        e.clock,
	}
}

func (e env) createUser(t *testing.T, externalID, email string) types.User {
	t.Helper()
	user, err := e.users.CreateUser(context.Background(), types.UserInput{
		ExternalID:  externalID,
		Email:       email,
		DisplayName: externalID,
	})
	require.NoError(t, err)
	return *user
}

func (e env) createCompetency(t *testing.T, name string) types.Competency {
	t.Helper()
	comp, err := e.competencies.CreateCompetency(context.Background(), types.CompetencyInput{Name: name, Description: name + " description"})
	require.NoError(t, err)
	return *comp
}

func (e env) createStory(t *testing.T, userID, competencyID int64, title string) types.Story {
	t.Helper()
	created, err := e.stories.CreateStory(context.Background(), validStoryInput(userID, competencyID, title))
	require.NoError(t, err)
	return *created
}

func (e env) auditActions(t *testing.T, userID int64) []string {
	t.Helper()
	records, err := e.audit.AuditByUser(context.Background(), userID)
	require.NoError(t, err)
	actions := make([]string, 0, len(records))
	for _, rec := range records {
		actions = append(actions, rec.Action)
	}
	return actions
}

func (e env) storedImages(t *testing.T) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(e.imagesRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func validStoryInput(userID, competencyID int64, title string) types.StoryInput {
	return types.StoryInput{
		UserID:       userID,
		CompetencyID: competencyID,
		Title:        title,
		Situation:    "The release pipeline was failing nightly.",
		Task:         "Restore a reliable release cadence.",
		Action:       "Rewrote the flaky integration suite.",
		Result:       "Nightly releases went green for a quarter.",
	}
}

type fakeProvider struct {
	mu       sync.Mutex
	vision   bool
	reply    string
	err      error
	requests []ai.Request
}

func (f *fakeProvider) Name() string             { return "fake" }
func (f *fakeProvider) SupportsStructured() bool { return false }
func (f *fakeProvider) SupportsVision() bool     { return f.vision }

func (f *fakeProvider) Complete(_ context.Context, req ai.Request) (ai.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return ai.Response{}, f.err
	}
	return ai.Response{Text: f.reply, Model: "fake-model"}, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type stubGate struct {
	disabled map[string]bool
}

func (g stubGate) Enabled(_ context.Context, key string, _ ...featuregate.ResolveOption) (bool, error) {
	return !g.disabled[key], nil
}
