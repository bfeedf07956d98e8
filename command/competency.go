package command

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/competency"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/validation"
)

// CompetencyCommandConfig wires the competency handlers.
type CompetencyCommandConfig struct {
	Competencies types.CompetencyRepository
	Audit        types.AuditSink
	Tx           Transactor
	Clock        types.Clock
	Hooks        types.Hooks
	Logger       types.Logger
}

type competencyDeps struct {
	repo  types.CompetencyRepository
	audit types.AuditSink
	tx    Transactor
	clock types.Clock
	hooks types.Hooks
}

func newCompetencyDeps(cfg CompetencyCommandConfig) competencyDeps {
	return competencyDeps{
		repo:  cfg.Competencies,
		audit: cfg.Audit,
		tx:    safeTx(cfg.Tx),
		clock: safeClock(cfg.Clock),
		hooks: cfg.Hooks,
	}
}

// CompetencyCreateInput creates a competency.
type CompetencyCreateInput struct {
	ActorID    int64
	Competency types.CompetencyInput
	Result     *types.Competency
}

// Type implements gocommand.Message.
func (CompetencyCreateInput) Type() string {
	return "command.competency.create"
}

// Validate implements gocommand.Message.
func (input CompetencyCreateInput) Validate() error {
	_, err := validation.Competency(input.Competency)
	return err
}

// CompetencyCreateCommand validates and inserts competencies.
type CompetencyCreateCommand struct {
	competencyDeps
}

// NewCompetencyCreateCommand constructs the handler.
func NewCompetencyCreateCommand(cfg CompetencyCommandConfig) *CompetencyCreateCommand {
	return &CompetencyCreateCommand{newCompetencyDeps(cfg)}
}

var _ gocommand.Commander[CompetencyCreateInput] = (*CompetencyCreateCommand)(nil)

// Execute implements gocommand.Commander.
func (c *CompetencyCreateCommand) Execute(ctx context.Context, input CompetencyCreateInput) error {
	if c.repo == nil {
		return types.ErrMissingCompetencyRepository
	}
	clean, err := validation.Competency(input.Competency)
	if err != nil {
		return err
	}
	var (
		created *types.Competency
		record  types.AuditRecord
	)
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.repo.CreateCompetency(ctx, clean)
		if err != nil {
			return err
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.ActorID,
			Action:     ActionCompetencyCreated,
			EntityType: EntityCompetency,
			EntityID:   created.ID,
			Details:    "Created competency: " + created.Name,
		})
		return err
	})
	if err != nil {
		return err
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = *created
	}
	return nil
}

// CompetencyUpdateInput patches a competency.
type CompetencyUpdateInput struct {
	ActorID int64
	ID      int64
	Patch   types.CompetencyPatch
	Result  *types.Competency
}

// Type implements gocommand.Message.
func (CompetencyUpdateInput) Type() string {
	return "command.competency.update"
}

// Validate implements gocommand.Message.
func (input CompetencyUpdateInput) Validate() error {
	if input.ID <= 0 {
		return ErrIDRequired
	}
	_, err := validation.CompetencyPatch(input.Patch)
	return err
}

// CompetencyUpdateCommand applies competency patches.
type CompetencyUpdateCommand struct {
	competencyDeps
}

// NewCompetencyUpdateCommand constructs the handler.
func NewCompetencyUpdateCommand(cfg CompetencyCommandConfig) *CompetencyUpdateCommand {
	return &CompetencyUpdateCommand{newCompetencyDeps(cfg)}
}

var _ gocommand.Commander[CompetencyUpdateInput] = (*CompetencyUpdateCommand)(nil)

// Execute returns ErrNotFound when the competency is absent.
func (c *CompetencyUpdateCommand) Execute(ctx context.Context, input CompetencyUpdateInput) error {
	if c.repo == nil {
		return types.ErrMissingCompetencyRepository
	}
	if input.ID <= 0 {
		return ErrIDRequired
	}
	patch, err := validation.CompetencyPatch(input.Patch)
	if err != nil {
		return err
	}
	var (
		updated *types.Competency
		record  types.AuditRecord
	)
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		updated, err = c.repo.UpdateCompetency(ctx, input.ID, patch)
		if err != nil {
			return err
		}
		if updated == nil {
			return notFound(msgCompetencyMissing)
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.ActorID,
			Action:     ActionCompetencyUpdated,
			EntityType: EntityCompetency,
			EntityID:   updated.ID,
			Details:    "Updated competency: " + updated.Name,
		})
		return err
	})
	if err != nil {
		return err
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = *updated
	}
	return nil
}

// CompetencyDeleteInput removes an unreferenced competency.
type CompetencyDeleteInput struct {
	ActorID int64
	ID      int64
	Result  *bool
}

// Type implements gocommand.Message.
func (CompetencyDeleteInput) Type() string {
	return "command.competency.delete"
}

// Validate implements gocommand.Message.
func (input CompetencyDeleteInput) Validate() error {
	if input.ID <= 0 {
		return ErrIDRequired
	}
	return nil
}

// CompetencyDeleteCommand deletes competencies no story references.
type CompetencyDeleteCommand struct {
	competencyDeps
}

// NewCompetencyDeleteCommand constructs the handler.
func NewCompetencyDeleteCommand(cfg CompetencyCommandConfig) *CompetencyDeleteCommand {
	return &CompetencyDeleteCommand{newCompetencyDeps(cfg)}
}

var _ gocommand.Commander[CompetencyDeleteInput] = (*CompetencyDeleteCommand)(nil)

// Execute fails with types.ErrCompetencyInUse while stories reference the
// competency; Result is false in that case and when it did not exist.
func (c *CompetencyDeleteCommand) Execute(ctx context.Context, input CompetencyDeleteInput) error {
	if c.repo == nil {
		return types.ErrMissingCompetencyRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if input.Result != nil {
		*input.Result = false
	}
	var (
		removed bool
		record  types.AuditRecord
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		existing, err := c.repo.GetCompetencyByID(ctx, input.ID)
		if err != nil || existing == nil {
			return err
		}
		removed, err = c.repo.DeleteCompetency(ctx, input.ID)
		if err != nil || !removed {
			return err
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.ActorID,
			Action:     ActionCompetencyDeleted,
			EntityType: EntityCompetency,
			EntityID:   input.ID,
			Details:    "Deleted competency: " + existing.Name,
		})
		return err
	})
	if err != nil {
		return err
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = removed
	}
	return nil
}

// SeedCompetenciesInput loads catalogue entries whose names are not yet
// present. A nil Entries slice seeds the bundled catalogue.
type SeedCompetenciesInput struct {
	ActorID int64
	Entries []competency.CatalogueEntry
	Result  *int
}

// Type implements gocommand.Message.
func (SeedCompetenciesInput) Type() string {
	return "command.competency.seed"
}

// Validate implements gocommand.Message.
func (SeedCompetenciesInput) Validate() error {
	return nil
}

// SeedCompetenciesCommand inserts missing catalogue competencies in one unit
// of work.
type SeedCompetenciesCommand struct {
	competencyDeps
	logger types.Logger
}

// NewSeedCompetenciesCommand constructs the handler.
func NewSeedCompetenciesCommand(cfg CompetencyCommandConfig) *SeedCompetenciesCommand {
	return &SeedCompetenciesCommand{competencyDeps: newCompetencyDeps(cfg), logger: safeLogger(cfg.Logger)}
}

var _ gocommand.Commander[SeedCompetenciesInput] = (*SeedCompetenciesCommand)(nil)

// Execute reports the number of competencies added through Result.
func (c *SeedCompetenciesCommand) Execute(ctx context.Context, input SeedCompetenciesInput) error {
	if c.repo == nil {
		return types.ErrMissingCompetencyRepository
	}
	entries := input.Entries
	if entries == nil {
		var err error
		if entries, err = competency.DefaultCatalogue(); err != nil {
			return err
		}
	}
	added := 0
	var record types.AuditRecord
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		for _, entry := range entries {
			clean, err := validation.Competency(entry.Input())
			if err != nil {
				return fmt.Errorf("seed %q: %w", entry.Name, err)
			}
			existing, err := c.repo.GetCompetencyByName(ctx, clean.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if _, err := c.repo.CreateCompetency(ctx, clean); err != nil {
				return err
			}
			added++
		}
		if added == 0 {
			return nil
		}
		var err error
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.ActorID,
			Action:     ActionCompetenciesSeeded,
			EntityType: EntityCompetency,
			Details:    fmt.Sprintf("Seeded %d competencies", added),
			Data:       map[string]any{"added": added},
		})
		return err
	})
	if err != nil {
		return err
	}
	c.logger.Info("competencies seeded", "added", added, "catalogue", len(entries))
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = added
	}
	return nil
}
