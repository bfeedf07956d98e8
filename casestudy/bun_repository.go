package casestudy

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

// RepositoryConfig wires the Bun-backed case study repository.
type RepositoryConfig struct {
	DB     *bun.DB
	Tx     *txn.Manager
	Clock  types.Clock
	Logger types.Logger
}

// Repository persists case studies.
type Repository struct {
	tx     *txn.Manager
	clock  types.Clock
	logger types.Logger
}

// NewRepository constructs the case study repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	manager := cfg.Tx
	if manager == nil {
		if cfg.DB == nil {
			return nil, errors.New("casestudy: db or transaction manager required")
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

var _ types.CaseStudyRepository = (*Repository)(nil)

// CreateCaseStudy inserts a case study.
func (r *Repository) CreateCaseStudy(ctx context.Context, input types.CaseStudyInput) (*types.CaseStudy, error) {
	now := types.NextUpdatedAt(r.clock, time.Time{})
	rec := &Record{
		UserID:      input.UserID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		ImagePath:   strings.TrimSpace(input.ImagePath),
		CreatedAt:   now,
		UpdatedAt:   now,
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

// GetCaseStudyByID returns nil when absent.
func (r *Repository) GetCaseStudyByID(ctx context.Context, id int64) (*types.CaseStudy, error) {
	var out *types.CaseStudy
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		rec, err := loadOne(ctx, db, id)
		out = toDomain(rec)
		return err
	})
	return out, err
}

// ListCaseStudiesByUser returns the user's case studies, newest first.
func (r *Repository) ListCaseStudiesByUser(ctx context.Context, userID int64) ([]types.CaseStudy, error) {
	var out []types.CaseStudy
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var rows []Record
		if err := db.NewSelect().
			Model(&rows).
			Where("user_id = ?", userID).
			OrderExpr("created_at DESC, id DESC").
			Scan(ctx); err != nil {
			return err
		}
		out = make([]types.CaseStudy, 0, len(rows))
		for i := range rows {
			out = append(out, *toDomain(&rows[i]))
		}
		return nil
	})
	return out, err
}

// CountCaseStudiesByUser issues a COUNT query.
func (r *Repository) CountCaseStudiesByUser(ctx context.Context, userID int64) (int, error) {
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

// UpdateCaseStudy writes the patched columns and bumps updated_at. It returns
// nil when the case study does not exist.
func (r *Repository) UpdateCaseStudy(ctx context.Context, id int64, patch types.CaseStudyPatch) (*types.CaseStudy, error) {
	var out *types.CaseStudy
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
		out = toDomain(rec)
		return nil
	})
	return out, err
}

// DeleteCaseStudy reports whether a row was removed.
func (r *Repository) DeleteCaseStudy(ctx context.Context, id int64) (bool, error) {
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
