package query

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/pkg/types"
)

// AuditLogInput filters the audit log. Limit defaults to 10 and is capped
// at 200.
type AuditLogInput struct {
	UserID int64
	Action string
	Limit  int
}

// Type implements gocommand.Message.
func (AuditLogInput) Type() string {
	return "query.audit.recent"
}

// Validate implements gocommand.Message.
func (AuditLogInput) Validate() error {
	return nil
}

func (input AuditLogInput) filter() types.AuditFilter {
	return types.AuditFilter{
		UserID: input.UserID,
		Action: strings.TrimSpace(input.Action),
		Limit:  normalizeAuditLimit(input.Limit),
	}
}

// AuditLogQuery returns recent audit entries newest first.
type AuditLogQuery struct {
	repo types.AuditRepository
}

// NewAuditLogQuery constructs the query.
func NewAuditLogQuery(repo types.AuditRepository) *AuditLogQuery {
	return &AuditLogQuery{repo: repo}
}

var _ gocommand.Querier[AuditLogInput, []types.AuditRecord] = (*AuditLogQuery)(nil)

// Query implements gocommand.Querier.
func (q *AuditLogQuery) Query(ctx context.Context, input AuditLogInput) ([]types.AuditRecord, error) {
	if q.repo == nil {
		return nil, types.ErrMissingAuditRepository
	}
	return q.repo.RecentAudit(ctx, input.filter())
}

// ActionCounter aggregates audit entries per action. audit.Repository
// satisfies it.
type ActionCounter interface {
	ActionCounts(ctx context.Context, filter types.AuditFilter) (map[string]int, error)
}

// AuditSummaryInput selects the entries to aggregate; Limit is ignored.
type AuditSummaryInput struct {
	UserID int64
	Action string
}

// Type implements gocommand.Message.
func (AuditSummaryInput) Type() string {
	return "query.audit.summary"
}

// Validate implements gocommand.Message.
func (AuditSummaryInput) Validate() error {
	return nil
}

// AuditSummaryQuery counts audit entries per action, for the admin view.
type AuditSummaryQuery struct {
	counter ActionCounter
}

// NewAuditSummaryQuery constructs the query.
func NewAuditSummaryQuery(counter ActionCounter) *AuditSummaryQuery {
	return &AuditSummaryQuery{counter: counter}
}

var _ gocommand.Querier[AuditSummaryInput, map[string]int] = (*AuditSummaryQuery)(nil)

// Query implements gocommand.Querier.
func (q *AuditSummaryQuery) Query(ctx context.Context, input AuditSummaryInput) (map[string]int, error) {
	if q.counter == nil {
		return nil, ErrMissingActionCounter
	}
	return q.counter.ActionCounts(ctx, types.AuditFilter{
		UserID: input.UserID,
		Action: strings.TrimSpace(input.Action),
	})
}
