package account

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

// RepositoryConfig wires the Bun-backed user repository.
type RepositoryConfig struct {
	DB     *bun.DB
	Tx     *txn.Manager
	Clock  types.Clock
	Logger types.Logger
}

// Repository persists users. Every operation runs in its own unit of work or
// joins the one carried by the context.
type Repository struct {
	tx     *txn.Manager
	clock  types.Clock
	logger types.Logger
}

// NewRepository constructs the user repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	manager := cfg.Tx
	if manager == nil {
		if cfg.DB == nil {
			return nil, errors.New("account: db or transaction manager required")
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
		logger: logger,
	}, nil
}

var _ types.UserRepository = (*Repository)(nil)

// CreateUser inserts a new active user.
func (r *Repository) CreateUser(ctx context.Context, input types.UserInput) (*types.User, error) {
	now := types.NextUpdatedAt(r.clock, time.Time{})
	rec := &Record{
		ExternalID:  strings.TrimSpace(input.ExternalID),
		Email:       strings.TrimSpace(input.Email),
		DisplayName: strings.TrimSpace(input.DisplayName),
		IsAdmin:     input.IsAdmin,
		IsActive:    true,
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
	r.logger.Debug("account: user created", "user_id", rec.ID)
	return toDomain(rec), nil
}

// GetUserByID returns nil when the user does not exist.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetUserByExternalID looks a user up by identity provider reference.
func (r *Repository) GetUserByExternalID(ctx context.Context, externalID string) (*types.User, error) {
	return r.getOne(ctx, "external_id = ?", strings.TrimSpace(externalID))
}

// GetUserByEmail performs a case-insensitive email lookup.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.getOne(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*types.User, error) {
	var out *types.User
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

// UpdateUser writes only the patched columns and bumps updated_at. It returns
// nil when the user does not exist.
func (r *Repository) UpdateUser(ctx context.Context, id int64, patch types.UserPatch) (*types.User, error) {
	var out *types.User
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		rec, err := loadOne(ctx, db, "id = ?", id)
		if err != nil || rec == nil {
			return err
		}
		columns := applyPatch(rec, patch)
		if len(columns) > 0 {
			if err := r.save(ctx, db, rec, columns); err != nil {
				return err
			}
		}
		out = toDomain(rec)
		return nil
	})
	return out, err
}

// ToggleAdmin flips the admin flag in a single unit of work.
func (r *Repository) ToggleAdmin(ctx context.Context, id int64) (*types.User, error) {
	var out *types.User
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		rec, err := loadOne(ctx, db, "id = ?", id)
		if err != nil || rec == nil {
			return err
		}
		rec.IsAdmin = !rec.IsAdmin
		if err := r.save(ctx, db, rec, []string{"is_admin"}); err != nil {
			return err
		}
		out = toDomain(rec)
		return nil
	})
	return out, err
}

// ListUsers returns every user ordered by display name.
func (r *Repository) ListUsers(ctx context.Context) ([]types.User, error) {
	var out []types.User
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var rows []Record
		if err := db.NewSelect().
			Model(&rows).
			OrderExpr("display_name ASC, id ASC").
			Scan(ctx); err != nil {
			return err
		}
		out = make([]types.User, 0, len(rows))
		for i := range rows {
			out = append(out, *toDomain(&rows[i]))
		}
		return nil
	})
	return out, err
}

// CountUsers issues a COUNT query.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var total int
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		n, err := db.NewSelect().Model((*Record)(nil)).Count(ctx)
		total = n
		return err
	})
	return total, err
}

// DeleteUser removes the user together with the stories and case studies it
// owns. Audit rows are kept.
func (r *Repository) DeleteUser(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := r.tx.WithTx(ctx, func(ctx context.Context, db bun.IDB) error {
		for _, table := range ownedTables {
			if _, err := db.NewDelete().
				TableExpr(table).
				Where("user_id = ?", id).
				Exec(ctx); err != nil {
				return err
			}
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
	if removed {
		r.logger.Debug("account: user deleted", "user_id", id)
	}
	return removed, nil
}

var ownedTables = []string{"star_stories", "case_studies"}

func (r *Repository) save(ctx context.Context, db bun.IDB, rec *Record, columns []string) error {
	rec.UpdatedAt = types.NextUpdatedAt(r.clock, rec.UpdatedAt)
	_, err := db.NewUpdate().
		Model(rec).
		Column(append(columns, "updated_at")...).
		WherePK().
		Exec(ctx)
	return err
}

func loadOne(ctx context.Context, db bun.IDB, where string, arg any) (*Record, error) {
	rec := &Record{}
	err := db.NewSelect().
		Model(rec).
		Where(where, arg).
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
