package service

import (
	"context"
	"fmt"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/command"
	"github.com/goliatone/go-star/imagestore"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/query"
	"github.com/goliatone/go-star/ratelimit"
)

// Pinger is satisfied by *bun.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service is the entry point for go-star. It wires repositories, the AI
// orchestrator and hooks into command/query facades for the host transport.
type Service struct {
	cfg      Config
	commands Commands
	queries  Queries
}

// Commands exposes the service command handlers.
type Commands struct {
	SyncLogin           *command.SyncLoginCommand
	Logout              *command.LogoutCommand
	UserUpdateIfChanged *command.UserUpdateIfChangedCommand
	UserToggleAdmin     *command.UserToggleAdminCommand
	UserSetActive       *command.UserSetActiveCommand
	UserDelete          *command.UserDeleteCommand
	CompetencyCreate    *command.CompetencyCreateCommand
	CompetencyUpdate    *command.CompetencyUpdateCommand
	CompetencyDelete    *command.CompetencyDeleteCommand
	SeedCompetencies    *command.SeedCompetenciesCommand
	StoryCreate         *command.StoryCreateCommand
	StoryUpdate         *command.StoryUpdateCommand
	StoryDelete         *command.StoryDeleteCommand
	CaseStudyCreate     *command.CaseStudyCreateCommand
	CaseStudyUpdate     *command.CaseStudyUpdateCommand
	CaseStudyDelete     *command.CaseStudyDeleteCommand
	GenerateStory       *command.GenerateStoryCommand
	EvaluateStory       *command.EvaluateStoryCommand
	ImproveStory        *command.ImproveStoryCommand
	AnalyzeCaseStudy    *command.AnalyzeCaseStudyCommand
	GapAnalysis         *command.GapAnalysisCommand
	GeneralQuery        *command.GeneralQueryCommand
	LogAudit            *command.AuditLogCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	Dashboard    *query.DashboardQuery
	Coverage     *query.CoverageQuery
	Stories      *query.StoryListQuery
	CaseStudies  *query.CaseStudyListQuery
	Competencies *query.CompetencyListQuery
	Users        *query.UserListQuery
	AuditLog     *query.AuditLogQuery
	AuditSummary *query.AuditSummaryQuery
}

// Config captures all dependencies so callers can supply their own
// repositories, orchestrator and hooks.
type Config struct {
	Users           types.UserRepository
	Competencies    types.CompetencyRepository
	Stories         types.StoryRepository
	CaseStudies     types.CaseStudyRepository
	AuditSink       types.AuditSink
	AuditRepository types.AuditRepository
	Tx              command.Transactor
	DB              Pinger
	AI              *ai.Orchestrator
	Images          imagestore.Store
	FeatureGate     featuregate.FeatureGate
	AILimiter       *ratelimit.Limiter
	AdminEmails     []string
	Hooks           types.Hooks
	Clock           types.Clock
	Logger          types.Logger
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)
	s := &Service{cfg: norm}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.AI == nil {
		cfg.AI = ai.New(ai.Config{Logger: cfg.Logger})
	}
	if cfg.AuditRepository == nil {
		if repo, ok := cfg.AuditSink.(types.AuditRepository); ok {
			cfg.AuditRepository = repo
		}
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Ready reports whether the required dependencies are wired in.
func (s *Service) Ready() bool {
	return s != nil && s.missing() == nil
}

func (s *Service) missing() error {
	switch {
	case s.cfg.Users == nil:
		return types.ErrMissingUserRepository
	case s.cfg.Competencies == nil:
		return types.ErrMissingCompetencyRepository
	case s.cfg.Stories == nil:
		return types.ErrMissingStoryRepository
	case s.cfg.CaseStudies == nil:
		return types.ErrMissingCaseStudyRepository
	case s.cfg.AuditSink == nil:
		return types.ErrMissingAuditSink
	case s.cfg.AuditRepository == nil:
		return types.ErrMissingAuditRepository
	case s.cfg.Tx == nil:
		return types.ErrMissingTransactor
	}
	return nil
}

// HealthCheck reports the first missing dependency, then pings the database
// when one was supplied.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s == nil {
		return types.ErrServiceNotReady
	}
	if err := s.missing(); err != nil {
		return err
	}
	if s.cfg.DB == nil {
		return nil
	}
	if err := s.cfg.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return nil
}

// AI returns the configured orchestrator.
func (s *Service) AI() *ai.Orchestrator {
	if s == nil {
		return nil
	}
	return s.cfg.AI
}

// AuditSink returns the configured sink so transports can record auxiliary
// workflows.
func (s *Service) AuditSink() types.AuditSink {
	if s == nil {
		return nil
	}
	return s.cfg.AuditSink
}

func (s *Service) buildCommands() Commands {
	userCfg := command.UserCommandConfig{
		Users:       s.cfg.Users,
		Audit:       s.cfg.AuditSink,
		Tx:          s.cfg.Tx,
		Clock:       s.cfg.Clock,
		Hooks:       s.cfg.Hooks,
		Logger:      s.cfg.Logger,
		CaseStudies: s.cfg.CaseStudies,
		Images:      s.cfg.Images,
	}
	compCfg := command.CompetencyCommandConfig{
		Competencies: s.cfg.Competencies,
		Audit:        s.cfg.AuditSink,
		Tx:           s.cfg.Tx,
		Clock:        s.cfg.Clock,
		Hooks:        s.cfg.Hooks,
		Logger:       s.cfg.Logger,
	}
	storyCfg := command.StoryCommandConfig{
		Stories: s.cfg.Stories,
		Audit:   s.cfg.AuditSink,
		Tx:      s.cfg.Tx,
		Clock:   s.cfg.Clock,
		Hooks:   s.cfg.Hooks,
	}
	caseCfg := command.CaseStudyCommandConfig{
		CaseStudies: s.cfg.CaseStudies,
		Images:      s.cfg.Images,
		Audit:       s.cfg.AuditSink,
		Tx:          s.cfg.Tx,
		Clock:       s.cfg.Clock,
		Hooks:       s.cfg.Hooks,
		Logger:      s.cfg.Logger,
	}
	aiCfg := command.AICommandConfig{
		AI:           s.cfg.AI,
		Stories:      s.cfg.Stories,
		Competencies: s.cfg.Competencies,
		CaseStudies:  s.cfg.CaseStudies,
		Images:       s.cfg.Images,
		Audit:        s.cfg.AuditSink,
		Tx:           s.cfg.Tx,
		FeatureGate:  s.cfg.FeatureGate,
		Limiter:      s.cfg.AILimiter,
		Clock:        s.cfg.Clock,
		Hooks:        s.cfg.Hooks,
		Logger:       s.cfg.Logger,
	}
	return Commands{
		SyncLogin: command.NewSyncLoginCommand(command.SyncLoginConfig{
			Users:       s.cfg.Users,
			Audit:       s.cfg.AuditSink,
			Tx:          s.cfg.Tx,
			Clock:       s.cfg.Clock,
			Hooks:       s.cfg.Hooks,
			Logger:      s.cfg.Logger,
			AdminEmails: s.cfg.AdminEmails,
		}),
		Logout:              command.NewLogoutCommand(s.cfg.AuditSink, s.cfg.Clock, s.cfg.Hooks),
		UserUpdateIfChanged: command.NewUserUpdateIfChangedCommand(userCfg),
		UserToggleAdmin:     command.NewUserToggleAdminCommand(userCfg),
		UserSetActive:       command.NewUserSetActiveCommand(userCfg),
		UserDelete:          command.NewUserDeleteCommand(userCfg),
		CompetencyCreate:    command.NewCompetencyCreateCommand(compCfg),
		CompetencyUpdate:    command.NewCompetencyUpdateCommand(compCfg),
		CompetencyDelete:    command.NewCompetencyDeleteCommand(compCfg),
		SeedCompetencies:    command.NewSeedCompetenciesCommand(compCfg),
		StoryCreate:         command.NewStoryCreateCommand(storyCfg),
		StoryUpdate:         command.NewStoryUpdateCommand(storyCfg),
		StoryDelete:         command.NewStoryDeleteCommand(storyCfg),
		CaseStudyCreate:     command.NewCaseStudyCreateCommand(caseCfg),
		CaseStudyUpdate:     command.NewCaseStudyUpdateCommand(caseCfg),
		CaseStudyDelete:     command.NewCaseStudyDeleteCommand(caseCfg),
		GenerateStory:       command.NewGenerateStoryCommand(aiCfg),
		EvaluateStory:       command.NewEvaluateStoryCommand(aiCfg),
		ImproveStory:        command.NewImproveStoryCommand(aiCfg),
		AnalyzeCaseStudy:    command.NewAnalyzeCaseStudyCommand(aiCfg),
		GapAnalysis:         command.NewGapAnalysisCommand(aiCfg),
		GeneralQuery:        command.NewGeneralQueryCommand(aiCfg),
		LogAudit:            command.NewAuditLogCommand(s.cfg.AuditSink, s.cfg.Clock, s.cfg.Hooks),
	}
}

func (s *Service) buildQueries() Queries {
	var counter query.ActionCounter
	if c, ok := s.cfg.AuditRepository.(query.ActionCounter); ok {
		counter = c
	}
	return Queries{
		Dashboard: query.NewDashboardQuery(query.DashboardConfig{
			Stories:      s.cfg.Stories,
			CaseStudies:  s.cfg.CaseStudies,
			Competencies: s.cfg.Competencies,
			Audit:        s.cfg.AuditRepository,
			Tx:           s.cfg.Tx,
		}),
		Coverage:     query.NewCoverageQuery(s.cfg.Stories, s.cfg.Competencies, s.cfg.Tx),
		Stories:      query.NewStoryListQuery(s.cfg.Stories),
		CaseStudies:  query.NewCaseStudyListQuery(s.cfg.CaseStudies),
		Competencies: query.NewCompetencyListQuery(s.cfg.Competencies),
		Users:        query.NewUserListQuery(s.cfg.Users),
		AuditLog:     query.NewAuditLogQuery(s.cfg.AuditRepository),
		AuditSummary: query.NewAuditSummaryQuery(counter),
	}
}
