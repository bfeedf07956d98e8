package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/txn"
	"github.com/uptrace/bun"
)

// DefaultRecentLimit bounds RecentAudit when the filter leaves Limit unset.
const DefaultRecentLimit = 10

// RepositoryConfig wires the Bun-backed audit repository.
type RepositoryConfig struct {
	DB     *bun.DB
	Tx     *txn.Manager
	Clock  types.Clock
	Masker *masker.Masker
	Logger types.Logger
}

// Repository appends audit entries and exposes read helpers. It has no update
// or delete operations.
type Repository struct {
	tx     *txn.Manager
	clock  types.Clock
	mask   *masker.Masker
	logger types.Logger
}

// NewRepository constructs a repository that implements both AuditSink and
// AuditRepository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	manager := cfg.Tx
	if manager == nil {
		if cfg.DB == nil {
			return nil, errors.New("audit: db or transaction manager required")
		}
		var err error
		manager, err = txn.New(txn.Config{DB: cfg.DB, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Repository{
		tx:     manager,
		clock:  clock,
		mask:   cfg.Masker,
		logger: logger,
	}, nil
}

var (
	_ types.AuditSink       = (*Repository)(nil)
	_ types.AuditRepository = (*Repository)(nil)
)

// Log inserts an audit entry. When ctx carries a transaction the insert joins
// it and commits or rolls back with the caller's work.
func (r *Repository) Log(ctx context.Context, record types.AuditRecord) error {
	record = SanitizeRecord(r.mask, record)
	entry := toLogEntry(record)
	entry.Action = strings.TrimSpace(entry.Action)
	entry.EntityType = strings.TrimSpace(entry.EntityType)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.clock.Now().UTC()
	}
	return r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewInsert().Model(entry).Exec(ctx)
		return err
	})
}

// RecentAudit returns entries newest first, optionally filtered by user and
// action.
func (r *Repository) RecentAudit(ctx context.Context, filter types.AuditFilter) ([]types.AuditRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return applyAuditFilter(q, filter).Limit(limit)
	})
}

// AuditByUser returns every entry recorded for the user, newest first.
func (r *Repository) AuditByUser(ctx context.Context, userID int64) ([]types.AuditRecord, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID)
	})
}

// ActionCounts aggregates entries grouped by action.
func (r *Repository) ActionCounts(ctx context.Context, filter types.AuditFilter) (map[string]int, error) {
	type row struct {
		Action string `bun:"action"`
		Total  int    `bun:"total"`
	}
	out := make(map[string]int)
	err := r.tx.WithReadTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var rows []row
		query := db.NewSelect().
			Table("audit_logs").
			ColumnExpr("action").
			ColumnExpr("COUNT(*) AS total").
			Group("action")
		if err := applyAuditFilter(query, filter).Scan(ctx, &rows); err != nil {
			return err
		}
		for _, rec := range rows {
			out[rec.Action] = rec.Total
		}
		return nil
	})
	return out, err
}

func (r *Repository) list(ctx context.Context, criteria func(*bun.SelectQuery) *bun.SelectQuery) ([]types.AuditRecord, error) {
	var out []types.AuditRecord
	err := r.tx.WithReadTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var rows []LogEntry
		q := db.NewSelect().
			Model(&rows).
			OrderExpr("created_at DESC, id DESC")
		if err := criteria(q).Scan(ctx); err != nil {
			return err
		}
		out = make([]types.AuditRecord, 0, len(rows))
		for i := range rows {
			out = append(out, toAuditRecord(&rows[i]))
		}
		return nil
	})
	return out, err
}

func applyAuditFilter(q *bun.SelectQuery, filter types.AuditFilter) *bun.SelectQuery {
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		q = q.Where("action = ?", action)
	}
	return q
}
