package competency

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

// RepositoryConfig wires the Bun-backed competency repository.
type RepositoryConfig struct {
	DB     *bun.DB
	Tx     *txn.Manager
	Clock  types.Clock
	Logger types.Logger
}

// Repository persists the competency catalogue.
type Repository struct {
	tx     *txn.Manager
	clock  types.Clock
	logger types.Logger
}

// NewRepository constructs the competency repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	manager := cfg.Tx
	if manager == nil {
		if cfg.DB == nil {
			return nil, errors.New("competency: db or transaction manager required")
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

var _ types.CompetencyRepository = (*Repository)(nil)

// CreateCompetency inserts a competency definition.
func (r *Repository) CreateCompetency(ctx context.Context, input types.CompetencyInput) (*types.Competency, error) {
	now := types.NextUpdatedAt(r.clock, time.Time{})
	rec := &Record{
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		Category:     strings.TrimSpace(input.Category),
		Level:        input.Level,
		Expectations: cloneMap(input.Expectations),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewInsert().Model(rec).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toDomain(rec), nil
}

// GetCompetencyByID returns nil when absent.
func (r *Repository) GetCompetencyByID(ctx context.Context, id int64) (*types.Competency, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetCompetencyByName returns the first competency carrying name. Names are
// unique by convention only.
func (r *Repository) GetCompetencyByName(ctx context.Context, name string) (*types.Competency, error) {
	return r.getOne(ctx, "name = ?", strings.TrimSpace(name))
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*types.Competency, error) {
	var out *types.Competency
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		rec, err := loadOne(ctx, db, where, arg)
		if err != nil {
			return err
		}
		out = toDomain(rec)
		return nil
	})
	return out, err
}

// ListCompetencies returns the catalogue ordered by name.
func (r *Repository) ListCompetencies(ctx context.Context) ([]types.Competency, error) {
	var out []types.Competency
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var rows []Record
		if err := db.NewSelect().
			Model(&rows).
			OrderExpr("name ASC, id ASC").
			Scan(ctx); err != nil {
			return err
		}
		out = make([]types.Competency, 0, len(rows))
		for i := range rows {
			out = append(out, *toDomain(&rows[i]))
		}
		return nil
	})
	return out, err
}

// UpdateCompetency writes the patched columns and bumps updated_at. It returns
// nil when the competency does not exist.
func (r *Repository) UpdateCompetency(ctx context.Context, id int64, patch types.CompetencyPatch) (*types.Competency, error) {
	var out *types.Competency
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		rec, err := loadOne(ctx, db, "id = ?", id)
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
		out = toDomain(rec)
		return nil
	})
	return out, err
}

// DeleteCompetency removes an unreferenced competency. The in-use check and
// the delete share one unit of work; a referenced competency yields false and
// ErrCompetencyInUse.
func (r *Repository) DeleteCompetency(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		inUse, err := storiesReferencing(ctx, db, id)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return types.ErrCompetencyInUse
		}
		res, err := db.NewDelete().
			Model((*Record)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// IsCompetencyInUse reports whether any story references the competency.
func (r *Repository) IsCompetencyInUse(ctx context.Context, id int64) (bool, error) {
	var inUse bool
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		n, err := storiesReferencing(ctx, db, id)
		inUse = n > 0
		return err
	})
	return inUse, err
}

func storiesReferencing(ctx context.Context, db bun.IDB, id int64) (int, error) {
	return db.NewSelect().
		TableExpr("star_stories").
		Where("competency_id = ?", id).
		Count(ctx)
}

func loadOne(ctx context.Context, db bun.IDB, where string, arg any) (*Record, error) {
	rec := &Record{}
	err := db.NewSelect().
		Model(rec).
		Where(where, arg).
		OrderExpr("id ASC").
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
