package command

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	featuregate "github.com/goliatone/go-featuregate/gate"
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/imagestore"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/ratelimit"
	"github.com/goliatone/go-star/validation"
)

// AICommandConfig wires the AI assisted handlers.
type AICommandConfig struct {
	AI           *ai.Orchestrator
	Stories      types.StoryRepository
	Competencies types.CompetencyRepository
	CaseStudies  types.CaseStudyRepository
	Images       imagestore.Store
	Audit        types.AuditSink
	Tx           Transactor
	FeatureGate  featuregate.FeatureGate
	Limiter      *ratelimit.Limiter
	Clock        types.Clock
	Hooks        types.Hooks
	Logger       types.Logger
}

type aiDeps struct {
	ai           *ai.Orchestrator
	stories      types.StoryRepository
	competencies types.CompetencyRepository
	caseStudies  types.CaseStudyRepository
	images       imagestore.Store
	audit        types.AuditSink
	tx           Transactor
	guard        aiGuard
	clock        types.Clock
	hooks        types.Hooks
	logger       types.Logger
}

func newAIDeps(cfg AICommandConfig) aiDeps {
	return aiDeps{
		ai:           cfg.AI,
		stories:      cfg.Stories,
		competencies: cfg.Competencies,
		caseStudies:  cfg.CaseStudies,
		images:       cfg.Images,
		audit:        cfg.Audit,
		tx:           safeTx(cfg.Tx),
		guard:        aiGuard{gate: cfg.FeatureGate, limiter: cfg.Limiter},
		clock:        safeClock(cfg.Clock),
		hooks:        cfg.Hooks,
		logger:       safeLogger(cfg.Logger),
	}
}

// settle persists AI output and the audit entry in a fresh unit of work.
// apply may be nil.
func (d aiDeps) settle(ctx context.Context, apply func(ctx context.Context) error, record types.AuditRecord) error {
	var written types.AuditRecord
	err := d.tx.Run(ctx, func(ctx context.Context) error {
		if apply != nil {
			if err := apply(ctx); err != nil {
				return err
			}
		}
		var err error
		written, err = writeAudit(ctx, d.audit, d.clock, record)
		return err
	})
	if err != nil {
		return err
	}
	emitAuditHook(ctx, d.hooks, written)
	return nil
}

func (d aiDeps) loadCompetency(ctx context.Context, id int64) (*types.Competency, error) {
	if id <= 0 || d.competencies == nil {
		return nil, nil
	}
	return d.competencies.GetCompetencyByID(ctx, id)
}

func callOptions(overrides map[string]any) []ai.CallOption {
	if len(overrides) == 0 {
		return nil
	}
	return []ai.CallOption{ai.WithOverrides(overrides)}
}

func aiAuditData(requestID, provider, failure string) map[string]any {
	data := map[string]any{"request_id": requestID, "provider": provider}
	if failure != "" {
		data["error"] = failure
	}
	return data
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// GenerateStoryInput asks the model for a story demonstrating a competency.
type GenerateStoryInput struct {
	UserID       int64
	CompetencyID int64
	Experience   string
	Overrides    map[string]any
	Result       *ai.GenerateResult
}

// Type implements gocommand.Message.
func (GenerateStoryInput) Type() string {
	return "command.ai.generate_story"
}

// Validate implements gocommand.Message.
func (input GenerateStoryInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.CompetencyID <= 0:
		return ErrIDRequired
	default:
		return nil
	}
}

// GenerateStoryCommand drafts a story. The draft is returned, not saved.
type GenerateStoryCommand struct {
	aiDeps
}

// NewGenerateStoryCommand constructs the handler.
func NewGenerateStoryCommand(cfg AICommandConfig) *GenerateStoryCommand {
	return &GenerateStoryCommand{newAIDeps(cfg)}
}

var _ gocommand.Commander[GenerateStoryInput] = (*GenerateStoryCommand)(nil)

// Execute implements gocommand.Commander.
func (c *GenerateStoryCommand) Execute(ctx context.Context, input GenerateStoryInput) error {
	if c.ai == nil {
		return types.ErrMissingOrchestrator
	}
	if c.competencies == nil {
		return types.ErrMissingCompetencyRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if err := c.guard.admit(ctx, FeatureAIGenerate, input.UserID); err != nil {
		return err
	}
	var comp *types.Competency
	if err := c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		comp, err = c.loadCompetency(ctx, input.CompetencyID)
		return err
	}); err != nil {
		return err
	}
	if comp == nil {
		return notFound(msgCompetencyMissing)
	}

	result := c.ai.GenerateStory(ctx, *comp, input.Experience, callOptions(input.Overrides)...)

	err := c.settle(ctx, nil, types.AuditRecord{
		UserID:     input.UserID,
		Action:     ActionGenerateStory,
		EntityType: EntityStory,
		Details:    "Generated story for competency: " + comp.Name,
		Data:       aiAuditData(result.RequestID, c.ai.ProviderName(), result.Error),
	})
	if err != nil {
		return err
	}
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}

// EvaluateStoryInput rates a saved story (StoryID) or an unsaved draft.
// Feedback for saved stories is stored on the story.
type EvaluateStoryInput struct {
	UserID       int64
	StoryID      int64
	Draft        *types.Story
	CompetencyID int64
	Overrides    map[string]any
	Result       *ai.EvaluationResult
}

// Type implements gocommand.Message.
func (EvaluateStoryInput) Type() string {
	return "command.ai.evaluate_story"
}

// Validate implements gocommand.Message.
func (input EvaluateStoryInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.StoryID <= 0 && input.Draft == nil:
		return ErrIDRequired
	default:
		return nil
	}
}

// EvaluateStoryCommand scores a story.
type EvaluateStoryCommand struct {
	aiDeps
}

// NewEvaluateStoryCommand constructs the handler.
func NewEvaluateStoryCommand(cfg AICommandConfig) *EvaluateStoryCommand {
	return &EvaluateStoryCommand{newAIDeps(cfg)}
}

var _ gocommand.Commander[EvaluateStoryInput] = (*EvaluateStoryCommand)(nil)

// Execute implements gocommand.Commander.
func (c *EvaluateStoryCommand) Execute(ctx context.Context, input EvaluateStoryInput) error {
	if c.ai == nil {
		return types.ErrMissingOrchestrator
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if input.StoryID > 0 && c.stories == nil {
		return types.ErrMissingStoryRepository
	}
	if err := c.guard.admit(ctx, FeatureAIEvaluate, input.UserID); err != nil {
		return err
	}

	var (
		story types.Story
		comp  *types.Competency
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		if input.StoryID > 0 {
			loaded, err := loadOwnedStory(ctx, c.stories, input.StoryID, input.UserID)
			if err != nil {
				return err
			}
			story = *loaded
		} else {
			story = *input.Draft
		}
		competencyID := input.CompetencyID
		if competencyID == 0 {
			competencyID = story.CompetencyID
		}
		var err error
		comp, err = c.loadCompetency(ctx, competencyID)
		return err
	})
	if err != nil {
		return err
	}

	result := c.ai.EvaluateStory(ctx, story, comp, callOptions(input.Overrides)...)

	var apply func(context.Context) error
	if input.StoryID > 0 && !result.Failed() && strings.TrimSpace(result.Evaluation) != "" {
		feedback := result.Evaluation
		apply = func(ctx context.Context) error {
			_, err := c.stories.UpdateStory(ctx, input.StoryID, types.StoryPatch{AIFeedback: &feedback})
			return err
		}
	}
	title := story.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	if err := c.settle(ctx, apply, types.AuditRecord{
		UserID:     input.UserID,
		Action:     ActionEvaluateStory,
		EntityType: EntityStory,
		EntityID:   input.StoryID,
		Details:    "Evaluated story: " + title,
		Data:       aiAuditData(result.RequestID, c.ai.ProviderName(), result.Error),
	}); err != nil {
		return err
	}
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}

// ImproveStoryInput requests improvement suggestions for a saved story.
type ImproveStoryInput struct {
	UserID    int64
	StoryID   int64
	Overrides map[string]any
	Result    *ai.ImprovementResult
}

// Type implements gocommand.Message.
func (ImproveStoryInput) Type() string {
	return "command.ai.improve_story"
}

// Validate implements gocommand.Message.
func (input ImproveStoryInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.StoryID <= 0:
		return ErrIDRequired
	default:
		return nil
	}
}

// ImproveStoryCommand suggests rewrites and stores the feedback on the story.
type ImproveStoryCommand struct {
	aiDeps
}

// NewImproveStoryCommand constructs the handler.
func NewImproveStoryCommand(cfg AICommandConfig) *ImproveStoryCommand {
	return &ImproveStoryCommand{newAIDeps(cfg)}
}

var _ gocommand.Commander[ImproveStoryInput] = (*ImproveStoryCommand)(nil)

// Execute fails with types.ErrNotAuthorized when the story belongs to
// another user.
func (c *ImproveStoryCommand) Execute(ctx context.Context, input ImproveStoryInput) error {
	if c.ai == nil {
		return types.ErrMissingOrchestrator
	}
	if c.stories == nil {
		return types.ErrMissingStoryRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if err := c.guard.admit(ctx, FeatureAIEvaluate, input.UserID); err != nil {
		return err
	}

	var (
		story *types.Story
		comp  *types.Competency
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		story, err = loadOwnedStory(ctx, c.stories, input.StoryID, input.UserID)
		if err != nil {
			return err
		}
		comp, err = c.loadCompetency(ctx, story.CompetencyID)
		return err
	})
	if err != nil {
		return err
	}

	result := c.ai.ImproveStory(ctx, *story, comp, callOptions(input.Overrides)...)

	var apply func(context.Context) error
	if !result.Failed() && strings.TrimSpace(result.Feedback) != "" {
		feedback := result.Feedback
		apply = func(ctx context.Context) error {
			_, err := c.stories.UpdateStory(ctx, story.ID, types.StoryPatch{AIFeedback: &feedback})
			return err
		}
	}
	if err := c.settle(ctx, apply, types.AuditRecord{
		UserID:     input.UserID,
		Action:     ActionImproveStory,
		EntityType: EntityStory,
		EntityID:   story.ID,
		Details:    "Requested improvements for story: " + story.Title,
		Data:       aiAuditData(result.RequestID, c.ai.ProviderName(), result.Error),
	}); err != nil {
		return err
	}
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}

// AnalyzeCaseStudyInput analyses a saved case study (CaseStudyID) or ad hoc
// content. For a saved case study its stored image is used when present,
// otherwise its description; explicit Text or Image take precedence.
type AnalyzeCaseStudyInput struct {
	UserID      int64
	CaseStudyID int64
	Text        string
	Image       *ai.Image
	Overrides   map[string]any
	Result      *ai.AnalysisResult
}

// Type implements gocommand.Message.
func (AnalyzeCaseStudyInput) Type() string {
	return "command.ai.analyze_case_study"
}

// Validate implements gocommand.Message.
func (input AnalyzeCaseStudyInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.CaseStudyID <= 0 && strings.TrimSpace(input.Text) == "" && input.Image == nil:
		return ErrContentRequired
	default:
		return nil
	}
}

// AnalyzeCaseStudyCommand runs text or image analysis and stores the result
// on the case study.
type AnalyzeCaseStudyCommand struct {
	aiDeps
}

// NewAnalyzeCaseStudyCommand constructs the handler.
func NewAnalyzeCaseStudyCommand(cfg AICommandConfig) *AnalyzeCaseStudyCommand {
	return &AnalyzeCaseStudyCommand{newAIDeps(cfg)}
}

var _ gocommand.Commander[AnalyzeCaseStudyInput] = (*AnalyzeCaseStudyCommand)(nil)

// Execute implements gocommand.Commander.
func (c *AnalyzeCaseStudyCommand) Execute(ctx context.Context, input AnalyzeCaseStudyInput) error {
	if c.ai == nil {
		return types.ErrMissingOrchestrator
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if input.CaseStudyID > 0 && c.caseStudies == nil {
		return types.ErrMissingCaseStudyRepository
	}
	if err := c.guard.admit(ctx, FeatureAIAnalyze, input.UserID); err != nil {
		return err
	}

	var (
		cs    *types.CaseStudy
		comps []types.Competency
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		if input.CaseStudyID > 0 {
			var err error
			if cs, err = loadOwnedCaseStudy(ctx, c.caseStudies, input.CaseStudyID, input.UserID); err != nil {
				return err
			}
		}
		if c.competencies == nil {
			return nil
		}
		var err error
		comps, err = c.competencies.ListCompetencies(ctx)
		return err
	})
	if err != nil {
		return err
	}

	text := strings.TrimSpace(input.Text)
	image := input.Image
	imageRef := "uploaded image"
	if cs != nil && text == "" && image == nil {
		if cs.ImagePath != "" {
			if c.images == nil {
				return ErrImageStoreRequired
			}
			data, err := c.images.Get(ctx, cs.ImagePath)
			if err != nil {
				return err
			}
			contentType, err := validation.ImageContentType(data)
			if err != nil {
				return err
			}
			image = &ai.Image{ContentType: contentType, Data: data}
			imageRef = cs.ImagePath
		} else {
			text = cs.Description
		}
	}

	var (
		result  ai.AnalysisResult
		action  string
		details string
	)
	opts := callOptions(input.Overrides)
	if image != nil {
		result = c.ai.AnalyzeImage(ctx, *image, comps, opts...)
		action, details = ActionImageAnalysis, "Image analysis for "+imageRef
	} else {
		result = c.ai.AnalyzeText(ctx, text, comps, opts...)
		action, details = ActionTextAnalysis, "Text analysis: "+excerpt(text, 100)
	}

	var apply func(context.Context) error
	var entityID int64
	if cs != nil {
		entityID = cs.ID
		if !result.Failed() && strings.TrimSpace(result.Analysis) != "" {
			analysis := result.Analysis
			apply = func(ctx context.Context) error {
				_, err := c.caseStudies.UpdateCaseStudy(ctx, cs.ID, types.CaseStudyPatch{AIAnalysis: &analysis})
				return err
			}
		}
	}
	if err := c.settle(ctx, apply, types.AuditRecord{
		UserID:     input.UserID,
		Action:     action,
		EntityType: EntityCaseStudy,
		EntityID:   entityID,
		Details:    details,
		Data:       aiAuditData(result.RequestID, c.ai.ProviderName(), result.Error),
	}); err != nil {
		return err
	}
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}

// GapAnalysisInput compares a user's stories with the competency catalogue.
type GapAnalysisInput struct {
	UserID    int64
	Overrides map[string]any
	Result    *ai.GapAnalysisResult
}

// Type implements gocommand.Message.
func (GapAnalysisInput) Type() string {
	return "command.ai.gap_analysis"
}

// Validate implements gocommand.Message.
func (input GapAnalysisInput) Validate() error {
	if input.UserID <= 0 {
		return ErrUserIDRequired
	}
	return nil
}

// GapAnalysisCommand runs the gap analysis.
type GapAnalysisCommand struct {
	aiDeps
}

// NewGapAnalysisCommand constructs the handler.
func NewGapAnalysisCommand(cfg AICommandConfig) *GapAnalysisCommand {
	return &GapAnalysisCommand{newAIDeps(cfg)}
}

var _ gocommand.Commander[GapAnalysisInput] = (*GapAnalysisCommand)(nil)

// Execute audits only analyses that reached the model; an empty story or
// competency set is reported through the result alone.
func (c *GapAnalysisCommand) Execute(ctx context.Context, input GapAnalysisInput) error {
	if c.ai == nil {
		return types.ErrMissingOrchestrator
	}
	if c.stories == nil {
		return types.ErrMissingStoryRepository
	}
	if c.competencies == nil {
		return types.ErrMissingCompetencyRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if err := c.guard.admit(ctx, FeatureAIGapAnalysis, input.UserID); err != nil {
		return err
	}

	var (
		stories []types.Story
		comps   []types.Competency
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		if stories, err = c.stories.ListStoriesByUser(ctx, input.UserID); err != nil {
			return err
		}
		comps, err = c.competencies.ListCompetencies(ctx)
		return err
	})
	if err != nil {
		return err
	}

	result := c.ai.PerformGapAnalysis(ctx, stories, comps, callOptions(input.Overrides)...)

	if len(stories) > 0 && len(comps) > 0 {
		if err := c.settle(ctx, nil, types.AuditRecord{
			UserID:     input.UserID,
			Action:     ActionGapAnalysis,
			EntityType: EntityUser,
			EntityID:   input.UserID,
			Details:    fmt.Sprintf("Performed gap analysis across %d stories and %d competencies", len(stories), len(comps)),
			Data:       aiAuditData(result.RequestID, c.ai.ProviderName(), result.Error),
		}); err != nil {
			return err
		}
	}
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}

// GeneralQueryInput answers a free-form question. With Optimize set the
// question is first rewritten into a stronger prompt.
type GeneralQueryInput struct {
	UserID          int64
	Query           string
	Optimize        bool
	UserRole        string
	PreviousQueries []string
	Overrides       map[string]any
	Result          *ai.QueryResult
	Prompt          *ai.PromptResult
}

// Type implements gocommand.Message.
func (GeneralQueryInput) Type() string {
	return "command.ai.general_query"
}

// Validate implements gocommand.Message.
func (input GeneralQueryInput) Validate() error {
	if input.UserID <= 0 {
		return ErrUserIDRequired
	}
	return nil
}

// GeneralQueryCommand answers questions about competencies and the STAR
// method.
type GeneralQueryCommand struct {
	aiDeps
}

// NewGeneralQueryCommand constructs the handler.
func NewGeneralQueryCommand(cfg AICommandConfig) *GeneralQueryCommand {
	return &GeneralQueryCommand{newAIDeps(cfg)}
}

var _ gocommand.Commander[GeneralQueryInput] = (*GeneralQueryCommand)(nil)

// Execute implements gocommand.Commander.
func (c *GeneralQueryCommand) Execute(ctx context.Context, input GeneralQueryInput) error {
	if c.ai == nil {
		return types.ErrMissingOrchestrator
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if err := c.guard.admit(ctx, FeatureAIQuery, input.UserID); err != nil {
		return err
	}

	var comps []types.Competency
	if c.competencies != nil {
		if err := c.tx.Run(ctx, func(ctx context.Context) error {
			var err error
			comps, err = c.competencies.ListCompetencies(ctx)
			return err
		}); err != nil {
			return err
		}
	}

	opts := callOptions(input.Overrides)
	query := input.Query
	var prompt ai.PromptResult
	if input.Optimize {
		prompt = c.ai.OptimizePrompt(ctx, query, comps, ai.QueryContext{
			PreviousQueries: input.PreviousQueries,
			UserRole:        input.UserRole,
		}, opts...)
		query = prompt.Optimized
	}
	result := c.ai.AnswerQuery(ctx, query, comps, opts...)

	if err := c.settle(ctx, nil, types.AuditRecord{
		UserID:     input.UserID,
		Action:     ActionGeneralQuery,
		EntityType: EntityUser,
		EntityID:   input.UserID,
		Details:    excerpt(input.Query, 500),
		Data:       aiAuditData(result.RequestID, c.ai.ProviderName(), result.Error),
	}); err != nil {
		return err
	}
	if input.Result != nil {
		*input.Result = result
	}
	if input.Prompt != nil {
		*input.Prompt = prompt
	}
	return nil
}
