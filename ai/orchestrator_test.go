package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu         sync.Mutex
	structured bool
	vision     bool
	reply      string
	err        error
	delay      time.Duration
	requests   []Request
}

func (f *fakeProvider) Name() string             { return "fake" }
func (f *fakeProvider) SupportsStructured() bool { return f.structured }
func (f *fakeProvider) SupportsVision() bool     { return f.vision }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Response{}, f.err
	}
	return Response{Text: f.reply, Model: "fake-model"}, nil
}

func (f *fakeProvider) last() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type countingRecorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingRecorder) Observe(_ context.Context, provider, operation string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	key := provider + "/" + operation + "/fail"
	if success {
		key = provider + "/" + operation + "/ok"
	}
	c.calls[key]++
}

var ownership = types.Competency{ID: 1, Name: "Ownership", Description: "Takes initiative"}

func sampleStory() types.Story {
	return types.Story{
		ID:             9,
		UserID:         1,
		CompetencyID:   1,
		CompetencyName: "Ownership",
		Title:          "Launch",
		Situation:      "The launch was slipping.",
		Task:           "Get it back on track.",
		Action:         "Re-planned the milestones.",
		Result:         "Shipped on the original date.",
	}
}

func newOrchestrator(p Provider) *Orchestrator {
	return New(Config{Provider: p, IDGen: func() string { return "req-1" }})
}

func TestGenerateStory_StructuredReply(t *testing.T) {
	provider := &fakeProvider{structured: true, reply: `{"title":"Took the pager","situation":"s","task":"t","action":"a","result":""}`}
	o := newOrchestrator(provider)

	got := o.GenerateStory(context.Background(), ownership, "platform team")
	require.False(t, got.Failed())
	require.True(t, got.Structured)
	require.Equal(t, "req-1", got.RequestID)
	require.Equal(t, "Took the pager", got.Story.Title)
	require.Equal(t, "a", got.Story.Action)
	require.Equal(t, Placeholder("result"), got.Story.Result)

	req := provider.last()
	require.True(t, req.JSON)
	require.NotNil(t, req.Temperature)
	require.Equal(t, 0.7, *req.Temperature)
	require.Contains(t, req.Prompt, "Competency: Ownership")
	require.Contains(t, req.Prompt, "platform team")
}

func TestGenerateStory_InvalidJSONFallsBackToHeuristics(t *testing.T) {
	provider := &fakeProvider{structured: true, reply: "Situation: one\n\nTask: two\n\nAction: three\n\nResult: four"}
	got := newOrchestrator(provider).GenerateStory(context.Background(), ownership, "")
	require.False(t, got.Structured)
	require.Equal(t, "two", got.Story.Task)
	require.Equal(t, "four", got.Story.Result)
}

func TestGenerateStory_ProviderFailureKeepsAllKeys(t *testing.T) {
	provider := &fakeProvider{err: errors.New("boom")}
	got := newOrchestrator(provider).GenerateStory(context.Background(), ownership, "")
	require.True(t, got.Failed())
	require.Contains(t, got.Error, "boom")
	for _, component := range Components {
		require.NotEmpty(t, got.Story.Get(component))
	}
}

func TestEvaluateStory_HeuristicPath(t *testing.T) {
	provider := &fakeProvider{reply: "An excellent result overall, but lacking detail."}
	o := newOrchestrator(provider)

	first := o.EvaluateStory(context.Background(), sampleStory(), &ownership)
	second := o.EvaluateStory(context.Background(), sampleStory(), &ownership)
	require.False(t, first.Failed())
	require.False(t, first.Structured)
	require.Equal(t, first.Scores, second.Scores)
	require.Equal(t, 4.0, first.Scores.Impact)
	require.Equal(t, 2.0, first.Scores.Clarity)

	req := provider.last()
	require.False(t, req.JSON)
	require.NotNil(t, req.Temperature)
	require.Equal(t, 0.2, *req.Temperature)
	require.Contains(t, req.Prompt, `"Ownership: Takes initiative"`)
	require.Contains(t, req.Prompt, "Title: Launch")
}

func TestEvaluateStory_StructuredAndNeutralFallback(t *testing.T) {
	provider := &fakeProvider{structured: true, reply: `{"evaluation":"Good","scores":{"completeness":4,"clarity":4,"relevance":4,"impact":5,"storytelling":3},"improvement_suggestions":{"result":"Quantify"}}`}
	got := newOrchestrator(provider).EvaluateStory(context.Background(), sampleStory(), nil)
	require.True(t, got.Structured)
	require.Equal(t, "Good", got.Evaluation)
	require.Equal(t, 4.0, got.Scores.Overall)
	require.Equal(t, "Quantify", got.Suggestions["result"])

	provider.reply = "plain prose, not json"
	got = newOrchestrator(provider).EvaluateStory(context.Background(), sampleStory(), nil)
	require.False(t, got.Failed())
	require.Equal(t, NeutralScores(), got.Scores)
	require.Equal(t, "plain prose, not json", got.Evaluation)
}

func TestImproveStory(t *testing.T) {
	provider := &fakeProvider{reply: "Situation\nExample: In March the launch slipped two weeks.\n\nOther notes follow."}
	got := newOrchestrator(provider).ImproveStory(context.Background(), sampleStory(), &ownership)
	require.False(t, got.Failed())
	require.Equal(t, "In March the launch slipped two weeks.", got.Improved.Situation)
	require.Equal(t, "Get it back on track.", got.Improved.Task)
	require.Equal(t, "The launch was slipping.", got.Original.Situation)

	structured := &fakeProvider{structured: true, reply: `{"feedback":"Tighten it","improvement_suggestions":{"task":"Be concrete"},"improved":{"task":"Recover two weeks of schedule."}}`}
	got = newOrchestrator(structured).ImproveStory(context.Background(), sampleStory(), nil)
	require.Equal(t, "Tighten it", got.Feedback)
	require.Equal(t, "Recover two weeks of schedule.", got.Improved.Task)
	require.Equal(t, "Re-planned the milestones.", got.Improved.Action)
}

func TestAnalyzeText(t *testing.T) {
	provider := &fakeProvider{reply: "Ownership matters here. Clear ownership of the outage."}
	o := newOrchestrator(provider)

	got := o.AnalyzeText(context.Background(), "case text", []types.Competency{ownership, {Name: "Leadership"}})
	require.False(t, got.Failed())
	require.True(t, got.Alignment["Ownership"].Relevant)
	require.NotContains(t, got.Alignment, "Leadership")

	empty := o.AnalyzeText(context.Background(), "   ", nil)
	require.Equal(t, "No content provided for analysis", empty.Error)
}

func TestAnalyzeImage(t *testing.T) {
	provider := &fakeProvider{structured: true, vision: true, reply: `{"extracted_text":"Q3 plan","analysis":"Solid","competency_alignment":{"Ownership":{"relevance":0.9,"justification":"owns plan"}},"recommendations":["Add metrics"]}`}
	o := New(Config{Provider: provider, Settings: NewSettings(map[string]any{SettingModel: "text-model", SettingVisionModel: "vision-model"}, nil)})

	got := o.AnalyzeImage(context.Background(), Image{ContentType: "image/png", Data: []byte("png")}, []types.Competency{ownership})
	require.False(t, got.Failed())
	require.Equal(t, "Q3 plan", got.ExtractedText)
	require.True(t, got.Alignment["Ownership"].Relevant)
	require.Equal(t, []string{"Add metrics"}, got.Recommendations)
	require.Equal(t, "vision-model", provider.last().Model)
	require.Len(t, provider.last().Images, 1)

	blind := &fakeProvider{}
	got = newOrchestrator(blind).AnalyzeImage(context.Background(), Image{Data: []byte("png")}, nil)
	require.True(t, got.Failed())
	require.Empty(t, blind.requests)
}

func TestPerformGapAnalysis(t *testing.T) {
	provider := &fakeProvider{structured: true, reply: `{"summary":"Mostly covered","covered_competencies":[{"name":"Ownership","coverage_score":0.9,"assessment":"ok"}],"gap_competencies":[{"name":"Leadership","coverage_score":0.1,"assessment":"none","suggestions":["Lead a guild"]}],"recommended_priorities":["Leadership"]}`}
	o := newOrchestrator(provider)
	comps := []types.Competency{ownership, {Name: "Leadership", Description: "Guides others"}}

	got := o.PerformGapAnalysis(context.Background(), []types.Story{sampleStory()}, comps)
	require.False(t, got.Failed())
	require.Equal(t, "Mostly covered", got.Summary)
	require.Len(t, got.Covered, 1)
	require.Equal(t, []string{"Lead a guild"}, got.Gaps[0].Suggestions)
	require.Contains(t, provider.last().Prompt, SerializeStories([]types.Story{sampleStory()}))
	require.Contains(t, provider.last().Prompt, SerializeCompetencies(comps))

	none := o.PerformGapAnalysis(context.Background(), nil, comps)
	require.Equal(t, "No STAR stories found for this user", none.Error)
	require.NotEmpty(t, none.Recommendation)

	noComps := o.PerformGapAnalysis(context.Background(), []types.Story{sampleStory()}, nil)
	require.Equal(t, "No competencies found in the system", noComps.Error)
}

func TestSerializeStoriesFormat(t *testing.T) {
	stories := []types.Story{
		sampleStory(),
		{Title: "", Situation: "s2", Task: "t2", Action: "a2", Result: "r2"},
	}
	want := "User's STAR Stories:\n" +
		"\nStory 1: Launch\nCompetency: Ownership\nSituation: The launch was slipping.\nTask: Get it back on track.\nAction: Re-planned the milestones.\nResult: Shipped on the original date.\n" +
		"\nStory 2: Untitled\nCompetency: No competency\nSituation: s2\nTask: t2\nAction: a2\nResult: r2\n"
	require.Equal(t, want, SerializeStories(stories))

	require.Equal(t, "Competency Framework:\n- Ownership: Takes initiative\n", SerializeCompetencies([]types.Competency{ownership}))
}

func TestAnswerQueryAndOptimizePrompt(t *testing.T) {
	provider := &fakeProvider{reply: "  Use numbers.  "}
	o := newOrchestrator(provider)

	answer := o.AnswerQuery(context.Background(), "How do I quantify results?", []types.Competency{ownership})
	require.Equal(t, "Use numbers.", answer.Response)
	require.Contains(t, provider.last().Prompt, "- Ownership: Takes initiative")

	optimized := o.OptimizePrompt(context.Background(), "help", nil, QueryContext{UserRole: "Engineer"})
	require.Equal(t, "Use numbers.", optimized.Optimized)
	require.Equal(t, "help", optimized.Original)

	provider.err = errors.New("down")
	optimized = o.OptimizePrompt(context.Background(), "help", nil, QueryContext{})
	require.True(t, optimized.Failed())
	require.Equal(t, "help", optimized.Optimized)
}

func TestCall_TimeoutSurfacesAsErrorResult(t *testing.T) {
	provider := &fakeProvider{reply: "late", delay: time.Second}
	recorder := &countingRecorder{}
	o := New(Config{Provider: provider, Metrics: recorder})

	got := o.AnswerQuery(context.Background(), "q", nil, WithOverrides(map[string]any{SettingTimeout: "10ms"}))
	require.True(t, got.Failed())
	require.True(t, strings.Contains(got.Error, "timed out"))
	require.Equal(t, 1, recorder.calls["fake/general_query/fail"])
}

func TestNilProviderDegrades(t *testing.T) {
	o := New(Config{})
	require.Equal(t, "none", o.ProviderName())
	got := o.EvaluateStory(context.Background(), sampleStory(), nil)
	require.True(t, got.Failed())
	require.Contains(t, got.Error, ErrProviderNotConfigured.Error())
}

func TestSettingsResolveLayers(t *testing.T) {
	s := NewSettings(map[string]any{SettingModel: "base", SettingMaxTokens: 1000, SettingTemperature: 0.5},
		map[string]map[string]any{OperationQuery: {SettingMaxTokens: 200}})

	got, err := s.Resolve(OperationQuery, nil)
	require.NoError(t, err)
	require.Equal(t, "base", got.Model)
	require.Equal(t, 200, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	require.Equal(t, 0.2, *got.Temperature)

	got, err = s.Resolve(OperationGenerate, map[string]any{SettingModel: "override"})
	require.NoError(t, err)
	require.Equal(t, "override", got.Model)
	require.NotNil(t, got.Temperature)
	require.Equal(t, 0.7, *got.Temperature)
	require.Equal(t, 1000, got.MaxTokens)

	_, err = s.Resolve(OperationQuery, map[string]any{SettingMaxTokens: "lots"})
	require.Error(t, err)
}

func TestZeroTemperatureOverrideReachesProvider(t *testing.T) {
	provider := &fakeProvider{reply: "answer"}
	got := newOrchestrator(provider).AnswerQuery(context.Background(), "q", nil,
		WithOverrides(map[string]any{SettingTemperature: 0}))
	require.False(t, got.Failed())

	req := provider.last()
	require.NotNil(t, req.Temperature)
	require.Equal(t, 0.0, *req.Temperature)
}
