package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/pkg/types"
)

// StoryListInput lists a user's stories, optionally narrowed to a
// competency.
type StoryListInput struct {
	UserID       int64
	CompetencyID int64
}

// Type implements gocommand.Message.
func (StoryListInput) Type() string {
	return "query.story.list"
}

// Validate implements gocommand.Message.
func (input StoryListInput) Validate() error {
	if input.UserID <= 0 {
		return ErrUserIDRequired
	}
	return nil
}

// StoryListQuery lists stories newest first.
type StoryListQuery struct {
	repo types.StoryRepository
}

// NewStoryListQuery constructs the query.
func NewStoryListQuery(repo types.StoryRepository) *StoryListQuery {
	return &StoryListQuery{repo: repo}
}

var _ gocommand.Querier[StoryListInput, []types.Story] = (*StoryListQuery)(nil)

// Query implements gocommand.Querier. Filtering by competency keeps only the
// user's own stories.
func (q *StoryListQuery) Query(ctx context.Context, input StoryListInput) ([]types.Story, error) {
	if q.repo == nil {
		return nil, types.ErrMissingStoryRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if input.CompetencyID <= 0 {
		return q.repo.ListStoriesByUser(ctx, input.UserID)
	}
	all, err := q.repo.ListStoriesByCompetency(ctx, input.CompetencyID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Story, 0, len(all))
	for _, s := range all {
		if s.UserID == input.UserID {
			out = append(out, s)
		}
	}
	return out, nil
}

// CaseStudyListInput lists a user's case studies.
type CaseStudyListInput struct {
	UserID int64
}

// Type implements gocommand.Message.
func (CaseStudyListInput) Type() string {
	return "query.case_study.list"
}

// Validate implements gocommand.Message.
func (input CaseStudyListInput) Validate() error {
	if input.UserID <= 0 {
		return ErrUserIDRequired
	}
	return nil
}

// CaseStudyListQuery lists case studies newest first.
type CaseStudyListQuery struct {
	repo types.CaseStudyRepository
}

// NewCaseStudyListQuery constructs the query.
func NewCaseStudyListQuery(repo types.CaseStudyRepository) *CaseStudyListQuery {
	return &CaseStudyListQuery{repo: repo}
}

var _ gocommand.Querier[CaseStudyListInput, []types.CaseStudy] = (*CaseStudyListQuery)(nil)

// Query implements gocommand.Querier.
func (q *CaseStudyListQuery) Query(ctx context.Context, input CaseStudyListInput) ([]types.CaseStudy, error) {
	if q.repo == nil {
		return nil, types.ErrMissingCaseStudyRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return q.repo.ListCaseStudiesByUser(ctx, input.UserID)
}

// CompetencyListInput lists every competency.
type CompetencyListInput struct{}

// Type implements gocommand.Message.
func (CompetencyListInput) Type() string {
	return "query.competency.list"
}

// Validate implements gocommand.Message.
func (CompetencyListInput) Validate() error {
	return nil
}

// CompetencyListQuery lists competencies ordered by name.
type CompetencyListQuery struct {
	repo types.CompetencyRepository
}

// NewCompetencyListQuery constructs the query.
func NewCompetencyListQuery(repo types.CompetencyRepository) *CompetencyListQuery {
	return &CompetencyListQuery{repo: repo}
}

var _ gocommand.Querier[CompetencyListInput, []types.Competency] = (*CompetencyListQuery)(nil)

// Query implements gocommand.Querier.
func (q *CompetencyListQuery) Query(ctx context.Context, _ CompetencyListInput) ([]types.Competency, error) {
	if q.repo == nil {
		return nil, types.ErrMissingCompetencyRepository
	}
	return q.repo.ListCompetencies(ctx)
}

// UserListInput lists every account.
type UserListInput struct{}

// Type implements gocommand.Message.
func (UserListInput) Type() string {
	return "query.user.list"
}

// Validate implements gocommand.Message.
func (UserListInput) Validate() error {
	return nil
}

// UserListQuery lists users ordered by display name.
type UserListQuery struct {
	repo types.UserRepository
}

// NewUserListQuery constructs the query.
func NewUserListQuery(repo types.UserRepository) *UserListQuery {
	return &UserListQuery{repo: repo}
}

var _ gocommand.Querier[UserListInput, []types.User] = (*UserListQuery)(nil)

// Query implements gocommand.Querier.
func (q *UserListQuery) Query(ctx context.Context, _ UserListInput) ([]types.User, error) {
	if q.repo == nil {
		return nil, types.ErrMissingUserRepository
	}
	return q.repo.ListUsers(ctx)
}
