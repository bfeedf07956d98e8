package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/pkg/types"
)

// AuditLogInput appends an arbitrary audit entry, for callers whose
// operations have no dedicated handler.
type AuditLogInput struct {
	Record types.AuditRecord
	Result *types.AuditRecord
}

// Type implements gocommand.Message.
func (AuditLogInput) Type() string {
	return "command.audit.log"
}

// Validate implements gocommand.Message.
func (input AuditLogInput) Validate() error {
	if strings.TrimSpace(input.Record.Action) == "" {
		return ErrAuditActionRequired
	}
	return nil
}

// AuditLogCommand writes audit entries through the configured sink.
type AuditLogCommand struct {
	sink  types.AuditSink
	clock types.Clock
	hooks types.Hooks
}

// NewAuditLogCommand constructs the handler.
func NewAuditLogCommand(sink types.AuditSink, clock types.Clock, hooks types.Hooks) *AuditLogCommand {
	return &AuditLogCommand{sink: sink, clock: safeClock(clock), hooks: hooks}
}

var _ gocommand.Commander[AuditLogInput] = (*AuditLogCommand)(nil)

// Execute implements gocommand.Commander.
func (c *AuditLogCommand) Execute(ctx context.Context, input AuditLogInput) error {
	if c.sink == nil {
		return types.ErrMissingAuditSink
	}
	if err := input.Validate(); err != nil {
		return err
	}
	record := input.Record
	record.Action = strings.TrimSpace(record.Action)
	written, err := writeAudit(ctx, c.sink, c.clock, record)
	if err != nil {
		return err
	}
	emitAuditHook(ctx, c.hooks, written)
	if input.Result != nil {
		*input.Result = written
	}
	return nil
}
