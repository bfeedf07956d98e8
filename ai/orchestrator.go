package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/google/uuid"
)

const (
	msgNoContent        = "No content provided for analysis"
	msgNoQuery          = "No query provided"
	msgNoStories        = "No STAR stories found for this user"
	msgCreateStories    = "Create some STAR stories first to perform a gap analysis"
	msgNoCompetencies   = "No competencies found in the system"
	msgQueryUnavailable = "I'm sorry, I couldn't generate a proper response to your query."
)

// ErrProviderNotConfigured is reported when no provider is wired.
var ErrProviderNotConfigured = errors.New("ai provider not configured")

// Config wires an Orchestrator.
type Config struct {
	Provider Provider
	Settings *Settings
	Metrics  MetricsRecorder
	Logger   types.Logger
	IDGen    func() string
}

// Orchestrator builds prompts, calls the provider and parses replies. It only
// ever sees plain records and never touches storage.
type Orchestrator struct {
	provider Provider
	settings *Settings
	metrics  MetricsRecorder
	logger   types.Logger
	idGen    func() string
}

// New constructs an orchestrator. A nil provider is allowed; every operation
// then degrades to an error result.
func New(cfg Config) *Orchestrator {
	settings := cfg.Settings
	if settings == nil {
		settings = NewSettings(nil, nil)
	}
	var metrics MetricsRecorder = nopRecorder{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = uuid.NewString
	}
	return &Orchestrator{
		provider: cfg.Provider,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
		idGen:    idGen,
	}
}

// CallOption adjusts a single operation.
type CallOption func(*callOptions)

type callOptions struct {
	overrides map[string]any
}

// WithOverrides layers per-request settings (model, temperature, max_tokens,
// timeout) over the operation preset.
func WithOverrides(values map[string]any) CallOption {
	return func(o *callOptions) {
		if o.overrides == nil {
			o.overrides = make(map[string]any, len(values))
		}
		for k, v := range values {
			o.overrides[k] = v
		}
	}
}

// ProviderName reports the wired provider, or "none".
func (o *Orchestrator) ProviderName() string {
	if o.provider == nil {
		return "none"
	}
	return o.provider.Name()
}

func (o *Orchestrator) structured() bool {
	return o.provider != nil && o.provider.SupportsStructured()
}

// GenerateStory writes a new story for competency. The result always carries
// all four components.
func (o *Orchestrator) GenerateStory(ctx context.Context, competency types.Competency, experience string, opts ...CallOption) GenerateResult {
	result := GenerateResult{RequestID: o.idGen()}
	structured := o.structured()
	text, err := o.call(ctx, result.RequestID, Request{
		Operation: OperationGenerate,
		System:    systemGenerate,
		Prompt:    GenerateStoryPrompt(competency, experience, structured),
		JSON:      structured,
	}, opts)
	if err != nil {
		result.Error = err.Error()
		result.Story = withPlaceholders(StoryComponents{})
		return result
	}
	result.Raw = text
	if structured {
		var decoded StoryComponents
		if decodeJSON(text, &decoded) == nil && hasAnyComponent(decoded) {
			result.Story = withPlaceholders(trimComponents(decoded))
			result.Structured = true
			return result
		}
	}
	result.Story = ParseStory(text)
	return result
}

type evaluationReply struct {
	Evaluation  string            `json:"evaluation"`
	Scores      Scores            `json:"scores"`
	Suggestions map[string]string `json:"improvement_suggestions"`
}

// EvaluateStory rates a story, optionally against its competency.
func (o *Orchestrator) EvaluateStory(ctx context.Context, story types.Story, competency *types.Competency, opts ...CallOption) EvaluationResult {
	result := EvaluationResult{RequestID: o.idGen()}
	structured := o.structured()
	text, err := o.call(ctx, result.RequestID, Request{
		Operation: OperationEvaluate,
		System:    systemEvaluate,
		Prompt:    EvaluateStoryPrompt(story, competency, structured),
		JSON:      structured,
	}, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if !structured {
		result.Evaluation = strings.TrimSpace(text)
		result.Scores = ScoreEvaluation(text)
		result.Suggestions = map[string]string{}
		return result
	}
	var reply evaluationReply
	if decodeJSON(text, &reply) != nil {
		result.Evaluation = strings.TrimSpace(text)
		result.Scores = NeutralScores()
		result.Suggestions = map[string]string{}
		return result
	}
	result.Structured = true
	result.Evaluation = reply.Evaluation
	result.Scores = normalizeScores(reply.Scores)
	result.Suggestions = nonNilStrings(reply.Suggestions)
	return result
}

type improvementReply struct {
	Feedback    string            `json:"feedback"`
	Evaluation  string            `json:"evaluation"`
	Suggestions map[string]string `json:"improvement_suggestions"`
	Improved    StoryComponents   `json:"improved"`
}

// ImproveStory suggests rewrites for each component of story.
func (o *Orchestrator) ImproveStory(ctx context.Context, story types.Story, competency *types.Competency, opts ...CallOption) ImprovementResult {
	original := StoryComponents{
		Title:     story.Title,
		Situation: story.Situation,
		Task:      story.Task,
		Action:    story.Action,
		Result:    story.Result,
	}
	result := ImprovementResult{RequestID: o.idGen(), Original: original, Improved: original}
	structured := o.structured()
	text, err := o.call(ctx, result.RequestID, Request{
		Operation: OperationImprove,
		System:    systemEvaluate,
		Prompt:    ImproveStoryPrompt(story, competency, structured),
		JSON:      structured,
	}, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if structured {
		var reply improvementReply
		if decodeJSON(text, &reply) == nil {
			result.Feedback = firstNonEmpty(reply.Feedback, reply.Evaluation)
			result.Suggestions = nonNilStrings(reply.Suggestions)
			improved := original
			for _, component := range Components {
				if v := strings.TrimSpace(reply.Improved.Get(component)); v != "" {
					improved.Set(component, v)
				}
			}
			result.Improved = improved
			return result
		}
	}
	result.Feedback = strings.TrimSpace(text)
	result.Suggestions = map[string]string{}
	result.Improved = ParseImprovements(text, original)
	return result
}

type alignmentReply struct {
	Relevance     float64 `json:"relevance"`
	Justification string  `json:"justification"`
}

type analysisReply struct {
	ExtractedText   string                    `json:"extracted_text"`
	Analysis        string                    `json:"analysis"`
	Alignment       map[string]alignmentReply `json:"competency_alignment"`
	Recommendations []string                  `json:"recommendations"`
}

// AnalyzeText analyses free text against the competency catalogue.
func (o *Orchestrator) AnalyzeText(ctx context.Context, content string, competencies []types.Competency, opts ...CallOption) AnalysisResult {
	result := AnalysisResult{RequestID: o.idGen()}
	if strings.TrimSpace(content) == "" {
		result.Error = msgNoContent
		return result
	}
	structured := o.structured()
	text, err := o.call(ctx, result.RequestID, Request{
		Operation: OperationTextAnalysis,
		System:    systemAnalyzeText,
		Prompt:    AnalyzeTextPrompt(content, competencies, structured),
		JSON:      structured,
	}, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	return o.readAnalysis(result, text, structured, competencies)
}

// AnalyzeImage reads and analyses an image. The provider must support
// vision input.
func (o *Orchestrator) AnalyzeImage(ctx context.Context, image Image, competencies []types.Competency, opts ...CallOption) AnalysisResult {
	result := AnalysisResult{RequestID: o.idGen()}
	if len(image.Data) == 0 {
		result.Error = msgNoContent
		return result
	}
	if o.provider != nil && !o.provider.SupportsVision() {
		result.Error = fmt.Sprintf("provider %s does not support image analysis", o.provider.Name())
		return result
	}
	structured := o.structured()
	text, err := o.call(ctx, result.RequestID, Request{
		Operation: OperationImageAnalyze,
		System:    systemAnalyzeImage,
		Prompt:    AnalyzeImagePrompt(competencies, structured),
		JSON:      structured,
		Images:    []Image{image},
	}, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	return o.readAnalysis(result, text, structured, competencies)
}

func (o *Orchestrator) readAnalysis(result AnalysisResult, text string, structured bool, competencies []types.Competency) AnalysisResult {
	if structured {
		var reply analysisReply
		if decodeJSON(text, &reply) == nil {
			result.Structured = true
			result.ExtractedText = reply.ExtractedText
			result.Analysis = reply.Analysis
			result.Recommendations = nonNilSlice(reply.Recommendations)
			result.Alignment = make(map[string]Alignment, len(reply.Alignment))
			for name, a := range reply.Alignment {
				result.Alignment[name] = Alignment{
					Relevance:     a.Relevance,
					Justification: a.Justification,
					Relevant:      a.Relevance >= 0.5,
				}
			}
			return result
		}
	}
	names := make([]string, 0, len(competencies))
	for _, c := range competencies {
		names = append(names, c.Name)
	}
	result.Analysis = strings.TrimSpace(text)
	result.Alignment = CompetencyMentions(text, names)
	result.Recommendations = []string{}
	return result
}

type gapReply struct {
	Summary    string          `json:"summary"`
	Covered    []GapCompetency `json:"covered_competencies"`
	Gaps       []GapCompetency `json:"gap_competencies"`
	Priorities []string        `json:"recommended_priorities"`
}

// PerformGapAnalysis compares a user's stories with the full competency set.
// The judgement is left to the model; this layer serialises inputs and reads
// the reply.
func (o *Orchestrator) PerformGapAnalysis(ctx context.Context, stories []types.Story, competencies []types.Competency, opts ...CallOption) GapAnalysisResult {
	result := GapAnalysisResult{RequestID: o.idGen()}
	if len(stories) == 0 {
		result.Error = msgNoStories
		result.Recommendation = msgCreateStories
		return result
	}
	if len(competencies) == 0 {
		result.Error = msgNoCompetencies
		return result
	}
	structured := o.structured()
	text, err := o.call(ctx, result.RequestID, Request{
		Operation: OperationGapAnalysis,
		System:    systemGap,
		Prompt:    GapAnalysisPrompt(stories, competencies, structured),
		JSON:      structured,
	}, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if structured {
		var reply gapReply
		if decodeJSON(text, &reply) == nil {
			result.Structured = true
			result.Summary = reply.Summary
			result.Covered = nonNilGaps(reply.Covered)
			result.Gaps = nonNilGaps(reply.Gaps)
			result.Priorities = nonNilSlice(reply.Priorities)
			return result
		}
	}
	result.Summary = strings.TrimSpace(text)
	result.Covered = []GapCompetency{}
	result.Gaps = []GapCompetency{}
	result.Priorities = []string{}
	return result
}

// AnswerQuery answers a free-form question about competencies or the STAR
// method.
func (o *Orchestrator) AnswerQuery(ctx context.Context, query string, competencies []types.Competency, opts ...CallOption) QueryResult {
	result := QueryResult{RequestID: o.idGen()}
	if strings.TrimSpace(query) == "" {
		result.Error = msgNoQuery
		return result
	}
	text, err := o.call(ctx, result.RequestID, Request{
		Operation: OperationQuery,
		System:    systemQuery,
		Prompt:    QueryPrompt(query, competencies),
	}, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Response = firstNonEmpty(strings.TrimSpace(text), msgQueryUnavailable)
	return result
}

// OptimizePrompt rewrites query into a stronger prompt. On failure the
// original query is returned as the optimized prompt alongside the error.
func (o *Orchestrator) OptimizePrompt(ctx context.Context, query string, competencies []types.Competency, qc QueryContext, opts ...CallOption) PromptResult {
	result := PromptResult{RequestID: o.idGen(), Original: query, Optimized: query}
	if strings.TrimSpace(query) == "" {
		result.Error = msgNoQuery
		return result
	}
	text, err := o.call(ctx, result.RequestID, Request{
		Operation: OperationOptimize,
		System:    systemOptimize,
		Prompt:    OptimizePromptPrompt(query, competencies, qc),
	}, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if optimized := strings.TrimSpace(text); optimized != "" {
		result.Optimized = optimized
	}
	return result
}

// call resolves settings, enforces the timeout and records metrics. Any
// failure is returned wrapped in types.ErrExternalService.
func (o *Orchestrator) call(ctx context.Context, requestID string, req Request, opts []CallOption) (string, error) {
	if o.provider == nil {
		return "", fmt.Errorf("%w: %v", types.ErrExternalService, ErrProviderNotConfigured)
	}
	var options callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	settings, err := o.settings.Resolve(req.Operation, options.overrides)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrExternalService, err)
	}
	req.Model = settings.Model
	req.Temperature = settings.Temperature
	req.MaxTokens = settings.MaxTokens
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.provider.Complete(ctx, req)
	elapsed := time.Since(start)
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = errors.New("empty response from provider")
	}
	o.metrics.Observe(ctx, o.provider.Name(), req.Operation, err == nil, elapsed)
	if err != nil {
		o.logger.Error("ai: provider call failed", err,
			"request_id", requestID,
			"provider", o.provider.Name(),
			"operation", req.Operation,
			"duration", elapsed)
		return "", fmt.Errorf("%w: %s", types.ErrExternalService, describeError(err))
	}
	o.logger.Debug("ai: provider call completed",
		"request_id", requestID,
		"provider", o.provider.Name(),
		"operation", req.Operation,
		"model", resp.Model,
		"duration", elapsed)
	return resp.Text, nil
}

func describeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	}
	return err.Error()
}

func normalizeScores(s Scores) Scores {
	fix := func(v float64) float64 {
		if v <= 0 {
			return 3
		}
		return clampScore(v)
	}
	s.Completeness = fix(s.Completeness)
	s.Clarity = fix(s.Clarity)
	s.Relevance = fix(s.Relevance)
	s.Impact = fix(s.Impact)
	s.Storytelling = fix(s.Storytelling)
	if s.Overall <= 0 {
		s.Overall = roundOne(meanScore(s))
	} else {
		s.Overall = clampScore(s.Overall)
	}
	return s
}

func hasAnyComponent(c StoryComponents) bool {
	for _, component := range Components {
		if strings.TrimSpace(c.Get(component)) != "" {
			return true
		}
	}
	return false
}

func trimComponents(c StoryComponents) StoryComponents {
	c.Title = strings.TrimSpace(c.Title)
	for _, component := range Components {
		c.Set(component, strings.TrimSpace(c.Get(component)))
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonNilStrings(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilGaps(s []GapCompetency) []GapCompetency {
	if s == nil {
		return []GapCompetency{}
	}
	return s
}
