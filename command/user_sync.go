package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/pkg/types"
)

// DefaultDisplayName is used when the identity provider sends no name.
const DefaultDisplayName = "New User"

// IdentityClaims is the subset of identity provider claims used to sync a
// local account.
type IdentityClaims struct {
	ExternalID        string
	Mail              string
	UserPrincipalName string
	DisplayName       string
}

// Email prefers the mail claim and falls back to the principal name.
func (c IdentityClaims) Email() string {
	if mail := strings.TrimSpace(c.Mail); mail != "" {
		return mail
	}
	return strings.TrimSpace(c.UserPrincipalName)
}

// SyncLoginInput carries a completed identity provider login.
type SyncLoginInput struct {
	Claims IdentityClaims
	Source string
	Result *types.LoginEvent
}

// Type implements gocommand.Message.
func (SyncLoginInput) Type() string {
	return "command.user.sync_login"
}

// Validate implements gocommand.Message.
func (input SyncLoginInput) Validate() error {
	if strings.TrimSpace(input.Claims.ExternalID) == "" {
		return ErrExternalIDRequired
	}
	return nil
}

// SyncLoginCommand gets or creates the local account for a login and keeps
// its email and display name in step with the identity provider.
type SyncLoginCommand struct {
	users       types.UserRepository
	audit       types.AuditSink
	tx          Transactor
	clock       types.Clock
	hooks       types.Hooks
	logger      types.Logger
	adminEmails map[string]struct{}
}

// SyncLoginConfig wires the login sync handler.
type SyncLoginConfig struct {
	Users       types.UserRepository
	Audit       types.AuditSink
	Tx          Transactor
	Clock       types.Clock
	Hooks       types.Hooks
	Logger      types.Logger
	AdminEmails []string
}

// NewSyncLoginCommand constructs the handler.
func NewSyncLoginCommand(cfg SyncLoginConfig) *SyncLoginCommand {
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = struct{}{}
		}
	}
	return &SyncLoginCommand{
		users:       cfg.Users,
		audit:       cfg.Audit,
		tx:          safeTx(cfg.Tx),
		clock:       safeClock(cfg.Clock),
		hooks:       cfg.Hooks,
		logger:      safeLogger(cfg.Logger),
		adminEmails: admins,
	}
}

var _ gocommand.Commander[SyncLoginInput] = (*SyncLoginCommand)(nil)

// Execute syncs the account and records a login audit entry. The first user
// ever created, and any address listed as admin, is granted admin.
func (c *SyncLoginCommand) Execute(ctx context.Context, input SyncLoginInput) error {
	if c.users == nil {
		return types.ErrMissingUserRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	claims := input.Claims
	email := claims.Email()
	name := strings.TrimSpace(claims.DisplayName)
	if name == "" {
		name = DefaultDisplayName
	}

	var event types.LoginEvent
	var records []types.AuditRecord
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		user, err := c.users.GetUserByExternalID(ctx, claims.ExternalID)
		if err != nil {
			return err
		}
		if user == nil {
			total, err := c.users.CountUsers(ctx)
			if err != nil {
				return err
			}
			user, err = c.users.CreateUser(ctx, types.UserInput{
				ExternalID:  claims.ExternalID,
				Email:       email,
				DisplayName: name,
				IsAdmin:     total == 0 || c.isAdminEmail(email),
			})
			if err != nil {
				return err
			}
			event.Created = true
		} else {
			updated, changed, err := updateIfChanged(ctx, c.users, *user, email, claims.DisplayName)
			if err != nil {
				return err
			}
			if changed {
				rec, err := writeAudit(ctx, c.audit, c.clock, userUpdatedRecord(updated.ID))
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			user, event.Changed = updated, changed
		}
		details := "User logged in via single sign-on"
		if source := strings.TrimSpace(input.Source); source != "" {
			details += " from " + source
		}
		rec, err := writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     user.ID,
			Action:     ActionLogin,
			EntityType: EntityUser,
			EntityID:   user.ID,
			Details:    details,
		})
		if err != nil {
			return err
		}
		records = append(records, rec)
		event.User = *user
		return nil
	})
	if err != nil {
		return err
	}
	event.OccurredAt = now(c.clock)
	c.logger.Info("user login synced", "user_id", event.User.ID, "created", event.Created, "changed", event.Changed)
	for _, rec := range records {
		emitAuditHook(ctx, c.hooks, rec)
	}
	emitLoginHook(ctx, c.hooks, event)
	if input.Result != nil {
		*input.Result = event
	}
	return nil
}

func (c *SyncLoginCommand) isAdminEmail(email string) bool {
	_, ok := c.adminEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// LogoutInput records a logout.
type LogoutInput struct {
	UserID int64
	Source string
}

// Type implements gocommand.Message.
func (LogoutInput) Type() string {
	return "command.user.logout"
}

// Validate implements gocommand.Message.
func (input LogoutInput) Validate() error {
	if input.UserID <= 0 {
		return ErrUserIDRequired
	}
	return nil
}

// LogoutCommand writes the logout audit entry.
type LogoutCommand struct {
	audit types.AuditSink
	clock types.Clock
	hooks types.Hooks
}

// NewLogoutCommand constructs the handler.
func NewLogoutCommand(sink types.AuditSink, clock types.Clock, hooks types.Hooks) *LogoutCommand {
	return &LogoutCommand{audit: sink, clock: safeClock(clock), hooks: hooks}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

// Execute implements gocommand.Commander.
func (c *LogoutCommand) Execute(ctx context.Context, input LogoutInput) error {
	if c.audit == nil {
		return types.ErrMissingAuditSink
	}
	if err := input.Validate(); err != nil {
		return err
	}
	details := "User logged out"
	if source := strings.TrimSpace(input.Source); source != "" {
		details += " from " + source
	}
	rec, err := writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
		UserID:     input.UserID,
		Action:     ActionLogout,
		EntityType: EntityUser,
		EntityID:   input.UserID,
		Details:    details,
	})
	if err != nil {
		return err
	}
	emitAuditHook(ctx, c.hooks, rec)
	return nil
}
