package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/pkg/types"
)

// DefaultDashboardRecent is the number of recent stories on the dashboard.
const DefaultDashboardRecent = 3

// DashboardInput selects the user whose dashboard is rendered.
type DashboardInput struct {
	UserID int64
	Recent int
}

// Type implements gocommand.Message.
func (DashboardInput) Type() string {
	return "query.dashboard"
}

// Validate implements gocommand.Message.
func (input DashboardInput) Validate() error {
	if input.UserID <= 0 {
		return ErrUserIDRequired
	}
	return nil
}

// Dashboard summarises a user's portfolio. RecentActivity is only filled
// when an audit repository is configured.
type Dashboard struct {
	StoryCount      int
	CaseStudyCount  int
	CompetencyCount int
	RecentStories   []types.Story
	RecentActivity  []types.AuditRecord
	Coverage        CoverageStats
}

// DashboardConfig wires the dashboard query.
type DashboardConfig struct {
	Stories      types.StoryRepository
	CaseStudies  types.CaseStudyRepository
	Competencies types.CompetencyRepository
	Audit        types.AuditRepository
	Tx           Transactor
}

// DashboardQuery assembles the dashboard in one read unit of work.
type DashboardQuery struct {
	stories      types.StoryRepository
	caseStudies  types.CaseStudyRepository
	competencies types.CompetencyRepository
	audit        types.AuditRepository
	tx           Transactor
}

// NewDashboardQuery constructs the query.
func NewDashboardQuery(cfg DashboardConfig) *DashboardQuery {
	return &DashboardQuery{
		stories:      cfg.Stories,
		caseStudies:  cfg.CaseStudies,
		competencies: cfg.Competencies,
		audit:        cfg.Audit,
		tx:           safeTx(cfg.Tx),
	}
}

var _ gocommand.Querier[DashboardInput, Dashboard] = (*DashboardQuery)(nil)

// Query implements gocommand.Querier.
func (q *DashboardQuery) Query(ctx context.Context, input DashboardInput) (Dashboard, error) {
	switch {
	case q.stories == nil:
		return Dashboard{}, types.ErrMissingStoryRepository
	case q.caseStudies == nil:
		return Dashboard{}, types.ErrMissingCaseStudyRepository
	case q.competencies == nil:
		return Dashboard{}, types.ErrMissingCompetencyRepository
	}
	if err := input.Validate(); err != nil {
		return Dashboard{}, err
	}
	recent := input.Recent
	if recent <= 0 {
		recent = DefaultDashboardRecent
	}
	var out Dashboard
	err := q.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		if out.StoryCount, err = q.stories.CountStoriesByUser(ctx, input.UserID); err != nil {
			return err
		}
		if out.CaseStudyCount, err = q.caseStudies.CountCaseStudiesByUser(ctx, input.UserID); err != nil {
			return err
		}
		if out.RecentStories, err = q.stories.RecentStoriesByUser(ctx, input.UserID, recent); err != nil {
			return err
		}
		if out.Coverage, err = coverage(ctx, q.stories, q.competencies, input.UserID); err != nil {
			return err
		}
		out.CompetencyCount = out.Coverage.Total
		if q.audit == nil {
			return nil
		}
		out.RecentActivity, err = q.audit.RecentAudit(ctx, types.AuditFilter{UserID: input.UserID, Limit: defaultAuditLimit})
		return err
	})
	if err != nil {
		return Dashboard{}, err
	}
	return out, nil
}
