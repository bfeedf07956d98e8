package command

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/imagestore"
	"github.com/goliatone/go-star/pkg/types"
)

// UserToggleAdminInput flips a user's admin flag.
type UserToggleAdminInput struct {
	UserID  int64
	ActorID int64
	Result  *types.User
}

// Type implements gocommand.Message.
func (UserToggleAdminInput) Type() string {
	return "command.user.toggle_admin"
}

// Validate implements gocommand.Message.
func (input UserToggleAdminInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.ActorID <= 0:
		return ErrActorRequired
	default:
		return nil
	}
}

// UserToggleAdminCommand flips the admin flag.
type UserToggleAdminCommand struct {
	users types.UserRepository
	audit types.AuditSink
	tx    Transactor
	clock types.Clock
	hooks types.Hooks
}

// NewUserToggleAdminCommand constructs the handler.
func NewUserToggleAdminCommand(cfg UserCommandConfig) *UserToggleAdminCommand {
	return &UserToggleAdminCommand{
		users: cfg.Users,
		audit: cfg.Audit,
		tx:    safeTx(cfg.Tx),
		clock: safeClock(cfg.Clock),
		hooks: cfg.Hooks,
	}
}

var _ gocommand.Commander[UserToggleAdminInput] = (*UserToggleAdminCommand)(nil)

// Execute implements gocommand.Commander.
func (c *UserToggleAdminCommand) Execute(ctx context.Context, input UserToggleAdminInput) error {
	if c.users == nil {
		return types.ErrMissingUserRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	var (
		user   *types.User
		record types.AuditRecord
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		user, err = c.users.ToggleAdmin(ctx, input.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return notFound(msgUserNotFound)
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.ActorID,
			Action:     ActionUserAdminToggled,
			EntityType: EntityUser,
			EntityID:   user.ID,
			Details:    fmt.Sprintf("Admin set to %t for %s", user.IsAdmin, user.Email),
			Data:       map[string]any{"is_admin": user.IsAdmin},
		})
		return err
	})
	if err != nil {
		return err
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = *user
	}
	return nil
}

// UserSetActiveInput activates or deactivates a user.
type UserSetActiveInput struct {
	UserID  int64
	ActorID int64
	Active  bool
	Result  *types.User
}

// Type implements gocommand.Message.
func (UserSetActiveInput) Type() string {
	return "command.user.set_active"
}

// Validate implements gocommand.Message.
func (input UserSetActiveInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.ActorID <= 0:
		return ErrActorRequired
	default:
		return nil
	}
}

// UserSetActiveCommand writes the active flag.
type UserSetActiveCommand struct {
	users types.UserRepository
	audit types.AuditSink
	tx    Transactor
	clock types.Clock
	hooks types.Hooks
}

// NewUserSetActiveCommand constructs the handler.
func NewUserSetActiveCommand(cfg UserCommandConfig) *UserSetActiveCommand {
	return &UserSetActiveCommand{
		users: cfg.Users,
		audit: cfg.Audit,
		tx:    safeTx(cfg.Tx),
		clock: safeClock(cfg.Clock),
		hooks: cfg.Hooks,
	}
}

var _ gocommand.Commander[UserSetActiveInput] = (*UserSetActiveCommand)(nil)

// Execute implements gocommand.Commander.
func (c *UserSetActiveCommand) Execute(ctx context.Context, input UserSetActiveInput) error {
	if c.users == nil {
		return types.ErrMissingUserRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	var (
		user   *types.User
		record types.AuditRecord
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		user, err = c.users.UpdateUser(ctx, input.UserID, types.UserPatch{IsActive: boolPtr(input.Active)})
		if err != nil {
			return err
		}
		if user == nil {
			return notFound(msgUserNotFound)
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.ActorID,
			Action:     ActionUserActiveChanged,
			EntityType: EntityUser,
			EntityID:   user.ID,
			Details:    fmt.Sprintf("Active set to %t for %s", user.IsActive, user.Email),
			Data:       map[string]any{"is_active": user.IsActive},
		})
		return err
	})
	if err != nil {
		return err
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = *user
	}
	return nil
}

// UserDeleteInput removes a user together with their stories and case
// studies. Audit entries about the user are kept.
type UserDeleteInput struct {
	UserID  int64
	ActorID int64
	Result  *bool
}

// Type implements gocommand.Message.
func (UserDeleteInput) Type() string {
	return "command.user.delete"
}

// Validate implements gocommand.Message.
func (input UserDeleteInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.ActorID <= 0:
		return ErrActorRequired
	default:
		return nil
	}
}

// UserDeleteCommand deletes users and, after the commit, the images of
// their case studies.
type UserDeleteCommand struct {
	users       types.UserRepository
	caseStudies types.CaseStudyRepository
	images      imagestore.Store
	audit       types.AuditSink
	tx          Transactor
	clock       types.Clock
	hooks       types.Hooks
	logger      types.Logger
}

// NewUserDeleteCommand constructs the handler.
func NewUserDeleteCommand(cfg UserCommandConfig) *UserDeleteCommand {
	return &UserDeleteCommand{
		users:       cfg.Users,
		caseStudies: cfg.CaseStudies,
		images:      cfg.Images,
		audit:       cfg.Audit,
		tx:          safeTx(cfg.Tx),
		clock:       safeClock(cfg.Clock),
		hooks:       cfg.Hooks,
		logger:      safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[UserDeleteInput] = (*UserDeleteCommand)(nil)

// Execute reports false through Result when the user did not exist.
func (c *UserDeleteCommand) Execute(ctx context.Context, input UserDeleteInput) error {
	if c.users == nil {
		return types.ErrMissingUserRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	var (
		removed bool
		images  []string
		record  types.AuditRecord
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		if images, err = c.imageKeys(ctx, input.UserID); err != nil {
			return err
		}
		removed, err = c.users.DeleteUser(ctx, input.UserID)
		if err != nil || !removed {
			return err
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.ActorID,
			Action:     ActionUserDeleted,
			EntityType: EntityUser,
			EntityID:   input.UserID,
			Details:    fmt.Sprintf("Deleted user %d", input.UserID),
		})
		return err
	})
	if err != nil {
		return err
	}
	if removed {
		c.discardImages(ctx, images)
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = removed
	}
	return nil
}

func (c *UserDeleteCommand) imageKeys(ctx context.Context, userID int64) ([]string, error) {
	if c.caseStudies == nil || c.images == nil {
		return nil, nil
	}
	cases, err := c.caseStudies.ListCaseStudiesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, cs := range cases {
		if cs.ImagePath != "" {
			keys = append(keys, cs.ImagePath)
		}
	}
	return keys, nil
}

// discardImages logs failures only; the rows are already gone.
func (c *UserDeleteCommand) discardImages(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := c.images.Delete(ctx, key); err != nil {
			c.logger.Error("user image cleanup failed", err, "key", key)
		}
	}
}
