package query

import (
	"context"
	"math"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/pkg/types"
)

// CompetencyCoverage pairs a competency with the number of stories the user
// wrote against it.
type CompetencyCoverage struct {
	Competency types.Competency
	StoryCount int
}

// Covered reports whether at least one story targets the competency.
func (c CompetencyCoverage) Covered() bool {
	return c.StoryCount > 0
}

// CoverageStats summarises how many competencies a user's stories cover.
type CoverageStats struct {
	Competencies []CompetencyCoverage
	Covered      int
	Total        int
	Percentage   int
}

// CoverageInput selects the user.
type CoverageInput struct {
	UserID int64
}

// Type implements gocommand.Message.
func (CoverageInput) Type() string {
	return "query.coverage"
}

// Validate implements gocommand.Message.
func (input CoverageInput) Validate() error {
	if input.UserID <= 0 {
		return ErrUserIDRequired
	}
	return nil
}

// CoverageQuery computes per-competency story counts.
type CoverageQuery struct {
	stories      types.StoryRepository
	competencies types.CompetencyRepository
	tx           Transactor
}

// NewCoverageQuery constructs the query.
func NewCoverageQuery(stories types.StoryRepository, competencies types.CompetencyRepository, tx Transactor) *CoverageQuery {
	return &CoverageQuery{stories: stories, competencies: competencies, tx: safeTx(tx)}
}

var _ gocommand.Querier[CoverageInput, CoverageStats] = (*CoverageQuery)(nil)

// Query implements gocommand.Querier.
func (q *CoverageQuery) Query(ctx context.Context, input CoverageInput) (CoverageStats, error) {
	if q.stories == nil {
		return CoverageStats{}, types.ErrMissingStoryRepository
	}
	if q.competencies == nil {
		return CoverageStats{}, types.ErrMissingCompetencyRepository
	}
	if err := input.Validate(); err != nil {
		return CoverageStats{}, err
	}
	var out CoverageStats
	err := q.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		out, err = coverage(ctx, q.stories, q.competencies, input.UserID)
		return err
	})
	return out, err
}

func coverage(ctx context.Context, stories types.StoryRepository, competencies types.CompetencyRepository, userID int64) (CoverageStats, error) {
	comps, err := competencies.ListCompetencies(ctx)
	if err != nil {
		return CoverageStats{}, err
	}
	counts, err := stories.CompetencyStoryCounts(ctx, userID)
	if err != nil {
		return CoverageStats{}, err
	}
	return Coverage(comps, counts), nil
}

// Coverage builds coverage stats from the competency list and per-competency
// story counts. The percentage is rounded half to even and is 0
// when there are no competencies.
func Coverage(comps []types.Competency, counts map[int64]int) CoverageStats {
	out := CoverageStats{
		Competencies: make([]CompetencyCoverage, 0, len(comps)),
		Total:        len(comps),
	}
	for _, comp := range comps {
		entry := CompetencyCoverage{Competency: comp, StoryCount: counts[comp.ID]}
		if entry.Covered() {
			out.Covered++
		}
		out.Competencies = append(out.Competencies, entry)
	}
	if out.Total > 0 {
		out.Percentage = int(math.RoundToEven(float64(out.Covered) / float64(out.Total) * 100))
	}
	return out
}
