package service

import (
	masker "github.com/goliatone/go-masker"
	"github.com/goliatone/go-star/account"
	"github.com/goliatone/go-star/audit"
	"github.com/goliatone/go-star/casestudy"
	"github.com/goliatone/go-star/competency"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/story"
	"github.com/goliatone/go-star/txn"
	"github.com/uptrace/bun"
)

// BunOptions tunes the Bun-backed repositories.
type BunOptions struct {
	Clock  types.Clock
	Logger types.Logger
	Masker *masker.Masker
}

// NewBunConfig builds a Config whose repositories share one transaction
// manager on db. Callers fill in the AI, image and gate fields.
func NewBunConfig(db *bun.DB, opts BunOptions) (Config, error) {
	manager, err := txn.New(txn.Config{DB: db, Logger: opts.Logger})
	if err != nil {
		return Config{}, err
	}
	mask := opts.Masker
	if mask == nil {
		mask = audit.DefaultMasker()
	}
	users, err := account.NewRepository(account.RepositoryConfig{Tx: manager, Clock: opts.Clock, Logger: opts.Logger})
	if err != nil {
		return Config{}, err
	}
	comps, err := competency.NewRepository(competency.RepositoryConfig{Tx: manager, Clock: opts.Clock, Logger: opts.Logger})
	if err != nil {
		return Config{}, err
	}
	stories, err := story.NewRepository(story.RepositoryConfig{Tx: manager, Clock: opts.Clock, Logger: opts.Logger})
	if err != nil {
		return Config{}, err
	}
	cases, err := casestudy.NewRepository(casestudy.RepositoryConfig{Tx: manager, Clock: opts.Clock, Logger: opts.Logger})
	if err != nil {
		return Config{}, err
	}
	auditRepo, err := audit.NewRepository(audit.RepositoryConfig{Tx: manager, Clock: opts.Clock, Masker: mask, Logger: opts.Logger})
	if err != nil {
		return Config{}, err
	}
	return Config{
		Users:           users,
		Competencies:    comps,
		Stories:         stories,
		CaseStudies:     cases,
		AuditSink:       auditRepo,
		AuditRepository: auditRepo,
		Tx:              manager,
		DB:              db,
		Clock:           opts.Clock,
		Logger:          opts.Logger,
	}, nil
}
