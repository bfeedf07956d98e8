package story

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/txn"
	"github.com/uptrace/bun"
)

// DefaultRecentLimit bounds RecentStoriesByUser when the caller passes 0.
const DefaultRecentLimit = 3

// RepositoryConfig wires the Bun-backed story repository.
type RepositoryConfig struct {
	DB     *bun.DB
	Tx     *txn.Manager
	Clock  types.Clock
	Logger types.Logger
}

// Repository persists STAR stories. Reads resolve competency names inside the
// same unit of work, so returned stories are complete on their own.
type Repository struct {
	tx     *txn.Manager
	clock  types.Clock
	logger types.Logger
}

// NewRepository constructs the story repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	manager := cfg.Tx
	if manager == nil {
		if cfg.DB == nil {
			return nil, errors.New("story: db or transaction manager required")
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
	return &Repository{tx: manager, clock: clock, logger: logger}, nil
}

var _ types.StoryRepository = (*Repository)(nil)

// CreateStory inserts a story and returns it with the competency name
// resolved.
func (r *Repository) CreateStory(ctx context.Context, input types.StoryInput) (*types.Story, error) {
	now := types.NextUpdatedAt(r.clock, time.Time{})
	rec := &Record{
		UserID:       input.UserID,
		CompetencyID: input.CompetencyID,
		Title:        strings.TrimSpace(input.Title),
		Situation:    input.Situation,
		Task:         input.Task,
		Action:       input.Action,
		Result:       input.Result,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var out *types.Story
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		if _, err := db.NewInsert().Model(rec).Exec(ctx); err != nil {
			return err
		}
		stories, err := hydrate(ctx, db, []Record{*rec})
		if err != nil {
			return err
		}
		out = &stories[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetStoryByID returns nil when absent.
func (r *Repository) GetStoryByID(ctx context.Context, id int64) (*types.Story, error) {
	var out *types.Story
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		rec, err := loadOne(ctx, db, id)
		if err != nil || rec == nil {
			return err
		}
		stories, err := hydrate(ctx, db, []Record{*rec})
		if err != nil {
			return err
		}
		out = &stories[0]
		return nil
	})
	return out, err
}

// ListStoriesByUser returns the user's stories, most recently updated first.
func (r *Repository) ListStoriesByUser(ctx context.Context, userID int64) ([]types.Story, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID)
	})
}

// RecentStoriesByUser returns at most limit stories ordered by updated_at
// descending.
func (r *Repository) RecentStoriesByUser(ctx context.Context, userID int64, limit int) ([]types.Story, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).Limit(limit)
	})
}

// ListStoriesByCompetency returns every story written against a competency.
func (r *Repository) ListStoriesByCompetency(ctx context.Context, competencyID int64) ([]types.Story, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("competency_id = ?", competencyID)
	})
}

func (r *Repository) list(ctx context.Context, criteria func(*bun.SelectQuery) *bun.SelectQuery) ([]types.Story, error) {
	var out []types.Story
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var rows []Record
		q := db.NewSelect().
			Model(&rows).
			OrderExpr("updated_at DESC, id DESC")
		if err := criteria(q).Scan(ctx); err != nil {
			return err
		}
		stories, err := hydrate(ctx, db, rows)
		out = stories
		return err
	})
	return out, err
}

// CountStoriesByUser issues a COUNT query.
func (r *Repository) CountStoriesByUser(ctx context.Context, userID int64) (int, error) {
	var total int
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		n, err := db.NewSelect().
			Model((*Record)(nil)).
			Where("user_id = ?", userID).
			Count(ctx)
		total = n
		return err
	})
	return total, err
}

// CompetencyStoryCounts groups the user's stories by competency.
func (r *Repository) CompetencyStoryCounts(ctx context.Context, userID int64) (map[int64]int, error) {
	type row struct {
		CompetencyID int64 `bun:"competency_id"`
		Total        int   `bun:"total"`
	}
	out := make(map[int64]int)
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var rows []row
		if err := db.NewSelect().
			Table("star_stories").
			ColumnExpr("competency_id").
			ColumnExpr("COUNT(*) AS total").
			Where("user_id = ?", userID).
			Where("competency_id IS NOT NULL").
			Group("competency_id").
			Scan(ctx, &rows); err != nil {
			return err
		}
		for _, rec := range rows {
			out[rec.CompetencyID] = rec.Total
		}
		return nil
	})
	return out, err
}

// UpdateStory writes the patched columns and bumps updated_at. Concurrent
// updates to the same story are last-write-wins. It returns nil when the
// story does not exist.
func (r *Repository) UpdateStory(ctx context.Context, id int64, patch types.StoryPatch) (*types.Story, error) {
	var out *types.Story
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		rec, err := loadOne(ctx, db, id)
		if err != nil || rec == nil {
			return err
		}
		columns := applyPatch(rec, patch)
		if len(columns) > 0 {
			rec.UpdatedAt = types.NextUpdatedAt(r.clock, rec.UpdatedAt)
			if _, err := db.NewUpdate().
				Model(rec).
				Column(append(columns, "updated_at")...).
				WherePK().
				Exec(ctx); err != nil {
				return err
			}
		}
		stories, err := hydrate(ctx, db, []Record{*rec})
		if err != nil {
			return err
		}
		out = &stories[0]
		return nil
	})
	return out, err
}

// DeleteStory reports whether a row was removed.
func (r *Repository) DeleteStory(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		res, err := db.NewDelete().
			Model((*Record)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		removed = affected > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func loadOne(ctx context.Context, db bun.IDB, id int64) (*Record, error) {
	rec := &Record{}
	err := db.NewSelect().
		Model(rec).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// hydrate copies rows into domain stories, resolving competency names with a
// single IN query.
func hydrate(ctx context.Context, db bun.IDB, rows []Record) ([]types.Story, error) {
	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, rec := range rows {
		if rec.CompetencyID == 0 {
			continue
		}
		if _, ok := seen[rec.CompetencyID]; ok {
			continue
		}
		seen[rec.CompetencyID] = struct{}{}
		ids = append(ids, rec.CompetencyID)
	}
	names := make(map[int64]string, len(ids))
	if len(ids) > 0 {
		var comps []competencyName
		if err := db.NewSelect().
			Model(&comps).
			Column("id", "name").
			Where("id IN (?)", bun.In(ids)).
			Scan(ctx); err != nil {
			return nil, err
		}
		for _, c := range comps {
			names[c.ID] = c.Name
		}
	}
	out := make([]types.Story, 0, len(rows))
	for i := range rows {
		out = append(out, toDomain(&rows[i], names))
	}
	return out, nil
}
