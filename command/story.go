package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/validation"
)

// StoryCommandConfig wires the story handlers.
type StoryCommandConfig struct {
	Stories types.StoryRepository
	Audit   types.AuditSink
	Tx      Transactor
	Clock   types.Clock
	Hooks   types.Hooks
}

type storyDeps struct {
	repo  types.StoryRepository
	audit types.AuditSink
	tx    Transactor
	clock types.Clock
	hooks types.Hooks
}

func newStoryDeps(cfg StoryCommandConfig) storyDeps {
	return storyDeps{
		repo:  cfg.Stories,
		audit: cfg.Audit,
		tx:    safeTx(cfg.Tx),
		clock: safeClock(cfg.Clock),
		hooks: cfg.Hooks,
	}
}

// loadOwnedStory returns the story when it exists and belongs to userID.
func loadOwnedStory(ctx context.Context, repo types.StoryRepository, storyID, userID int64) (*types.Story, error) {
	story, err := repo.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, notFound(msgStoryNotFound)
	}
	if userID > 0 && story.UserID != userID {
		return nil, forbidden(msgStoryForbidden)
	}
	return story, nil
}

// StoryCreateInput creates a STAR story for Story.UserID.
type StoryCreateInput struct {
	Story  types.StoryInput
	Result *types.Story
}

// Type implements gocommand.Message.
func (StoryCreateInput) Type() string {
	return "command.story.create"
}

// Validate implements gocommand.Message.
func (input StoryCreateInput) Validate() error {
	_, err := validation.Story(input.Story)
	return err
}

// StoryCreateCommand validates and inserts stories.
type StoryCreateCommand struct {
	storyDeps
}

// NewStoryCreateCommand constructs the handler.
func NewStoryCreateCommand(cfg StoryCommandConfig) *StoryCreateCommand {
	return &StoryCreateCommand{newStoryDeps(cfg)}
}

var _ gocommand.Commander[StoryCreateInput] = (*StoryCreateCommand)(nil)

// Execute implements gocommand.Commander.
func (c *StoryCreateCommand) Execute(ctx context.Context, input StoryCreateInput) error {
	if c.repo == nil {
		return types.ErrMissingStoryRepository
	}
	clean, err := validation.Story(input.Story)
	if err != nil {
		return err
	}
	var (
		created *types.Story
		record  types.AuditRecord
	)
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.repo.CreateStory(ctx, clean)
		if err != nil {
			return err
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     created.UserID,
			Action:     ActionStoryCreated,
			EntityType: EntityStory,
			EntityID:   created.ID,
			Details:    "Created story: " + created.Title,
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

// StoryUpdateInput patches a story owned by UserID.
type StoryUpdateInput struct {
	UserID  int64
	StoryID int64
	Patch   types.StoryPatch
	Result  *types.Story
}

// Type implements gocommand.Message.
func (StoryUpdateInput) Type() string {
	return "command.story.update"
}

// Validate implements gocommand.Message.
func (input StoryUpdateInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.StoryID <= 0:
		return ErrIDRequired
	}
	_, err := validation.StoryPatch(input.Patch)
	return err
}

// StoryUpdateCommand applies story patches after an ownership check.
type StoryUpdateCommand struct {
	storyDeps
}

// NewStoryUpdateCommand constructs the handler.
func NewStoryUpdateCommand(cfg StoryCommandConfig) *StoryUpdateCommand {
	return &StoryUpdateCommand{newStoryDeps(cfg)}
}

var _ gocommand.Commander[StoryUpdateInput] = (*StoryUpdateCommand)(nil)

// Execute implements gocommand.Commander.
func (c *StoryUpdateCommand) Execute(ctx context.Context, input StoryUpdateInput) error {
	if c.repo == nil {
		return types.ErrMissingStoryRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	patch, _ := validation.StoryPatch(input.Patch)
	var (
		updated *types.Story
		record  types.AuditRecord
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		if _, err := loadOwnedStory(ctx, c.repo, input.StoryID, input.UserID); err != nil {
			return err
		}
		var err error
		updated, err = c.repo.UpdateStory(ctx, input.StoryID, patch)
		if err != nil {
			return err
		}
		if updated == nil {
			return notFound(msgStoryNotFound)
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.UserID,
			Action:     ActionStoryUpdated,
			EntityType: EntityStory,
			EntityID:   updated.ID,
			Details:    "Updated story: " + updated.Title,
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

// StoryDeleteInput removes a story owned by UserID.
type StoryDeleteInput struct {
	UserID  int64
	StoryID int64
	Result  *bool
}

// Type implements gocommand.Message.
func (StoryDeleteInput) Type() string {
	return "command.story.delete"
}

// Validate implements gocommand.Message.
func (input StoryDeleteInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.StoryID <= 0:
		return ErrIDRequired
	default:
		return nil
	}
}

// StoryDeleteCommand deletes stories after an ownership check.
type StoryDeleteCommand struct {
	storyDeps
}

// NewStoryDeleteCommand constructs the handler.
func NewStoryDeleteCommand(cfg StoryCommandConfig) *StoryDeleteCommand {
	return &StoryDeleteCommand{newStoryDeps(cfg)}
}

var _ gocommand.Commander[StoryDeleteInput] = (*StoryDeleteCommand)(nil)

// Execute implements gocommand.Commander.
func (c *StoryDeleteCommand) Execute(ctx context.Context, input StoryDeleteInput) error {
	if c.repo == nil {
		return types.ErrMissingStoryRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	var (
		removed bool
		record  types.AuditRecord
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		story, err := loadOwnedStory(ctx, c.repo, input.StoryID, input.UserID)
		if err != nil {
			return err
		}
		removed, err = c.repo.DeleteStory(ctx, input.StoryID)
		if err != nil || !removed {
			return err
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.UserID,
			Action:     ActionStoryDeleted,
			EntityType: EntityStory,
			EntityID:   input.StoryID,
			Details:    "Deleted story: " + story.Title,
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
