package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/imagestore"
	"github.com/goliatone/go-star/pkg/types"
)

// UserUpdatedDetails is the audit text written when a login refreshes a
// user's profile fields.
const UserUpdatedDetails = "User information updated from identity provider"

// UserUpdateIfChangedInput refreshes email and display name from the
// identity provider.
type UserUpdateIfChangedInput struct {
	UserID      int64
	Email       string
	DisplayName string
	Result      *types.User
	Changed     *bool
}

// Type implements gocommand.Message.
func (UserUpdateIfChangedInput) Type() string {
	return "command.user.update_if_changed"
}

// Validate implements gocommand.Message.
func (input UserUpdateIfChangedInput) Validate() error {
	if input.UserID <= 0 {
		return ErrUserIDRequired
	}
	return nil
}

// UserUpdateIfChangedCommand writes only when a field actually differs.
type UserUpdateIfChangedCommand struct {
	users types.UserRepository
	audit types.AuditSink
	tx    Transactor
	clock types.Clock
	hooks types.Hooks
}

// UserCommandConfig wires the user administration handlers.
type UserCommandConfig struct {
	Users  types.UserRepository
	Audit  types.AuditSink
	Tx     Transactor
	Clock  types.Clock
	Hooks  types.Hooks
	Logger types.Logger
	// CaseStudies and Images let user deletion remove stored case study
	// images once the cascade committed.
	CaseStudies types.CaseStudyRepository
	Images      imagestore.Store
}

// NewUserUpdateIfChangedCommand constructs the handler.
func NewUserUpdateIfChangedCommand(cfg UserCommandConfig) *UserUpdateIfChangedCommand {
	return &UserUpdateIfChangedCommand{
		users: cfg.Users,
		audit: cfg.Audit,
		tx:    safeTx(cfg.Tx),
		clock: safeClock(cfg.Clock),
		hooks: cfg.Hooks,
	}
}

var _ gocommand.Commander[UserUpdateIfChangedInput] = (*UserUpdateIfChangedCommand)(nil)

// Execute implements gocommand.Commander.
func (c *UserUpdateIfChangedCommand) Execute(ctx context.Context, input UserUpdateIfChangedInput) error {
	if c.users == nil {
		return types.ErrMissingUserRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	var (
		result  types.User
		changed bool
		record  types.AuditRecord
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		user, err := c.users.GetUserByID(ctx, input.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return notFound(msgUserNotFound)
		}
		updated, didChange, err := updateIfChanged(ctx, c.users, *user, input.Email, input.DisplayName)
		if err != nil {
			return err
		}
		result, changed = *updated, didChange
		if !changed {
			return nil
		}
		record, err = writeAudit(ctx, c.audit, c.clock, userUpdatedRecord(updated.ID))
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		emitAuditHook(ctx, c.hooks, record)
	}
	if input.Result != nil {
		*input.Result = result
	}
	if input.Changed != nil {
		*input.Changed = changed
	}
	return nil
}

// updateIfChanged patches only the fields that differ; blank values never
// overwrite stored ones.
func updateIfChanged(ctx context.Context, users types.UserRepository, user types.User, email, name string) (*types.User, bool, error) {
	var patch types.UserPatch
	if email = strings.TrimSpace(email); email != "" && email != user.Email {
		patch.Email = &email
	}
	if name = strings.TrimSpace(name); name != "" && name != user.DisplayName {
		patch.DisplayName = &name
	}
	if patch.Empty() {
		return &user, false, nil
	}
	updated, err := users.UpdateUser(ctx, user.ID, patch)
	if err != nil {
		return nil, false, err
	}
	if updated == nil {
		return nil, false, notFound(msgUserNotFound)
	}
	return updated, true, nil
}

func userUpdatedRecord(userID int64) types.AuditRecord {
	return types.AuditRecord{
		UserID:     userID,
		Action:     ActionUserUpdated,
		EntityType: EntityUser,
		EntityID:   userID,
		Details:    UserUpdatedDetails,
	}
}
