package command

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-star/pkg/types"
)

// Transactor opens a unit of work. Repositories called with the context
// handed to fn join it. txn.Manager satisfies it.
type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

type directTx struct{}

func (directTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func safeTx(tx Transactor) Transactor {
	if tx != nil {
		return tx
	}
	return directTx{}
}

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

// writeAudit appends record inside the caller's unit of work; a failure rolls
// the whole operation back.
func writeAudit(ctx context.Context, sink types.AuditSink, clock types.Clock, record types.AuditRecord) (types.AuditRecord, error) {
	if sink == nil {
		return record, nil
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now(clock)
	}
	if err := sink.Log(ctx, record); err != nil {
		return record, err
	}
	return record, nil
}

func emitAuditHook(ctx context.Context, hooks types.Hooks, record types.AuditRecord) {
	if hooks.AfterAudit == nil || record.Action == "" {
		return
	}
	hooks.AfterAudit(ctx, record)
}

func emitLoginHook(ctx context.Context, hooks types.Hooks, event types.LoginEvent) {
	if hooks.AfterLogin == nil {
		return
	}
	hooks.AfterLogin(ctx, event)
}

func notFound(message string) error {
	return fmt.Errorf("%w: %s", types.ErrNotFound, message)
}

func forbidden(message string) error {
	return fmt.Errorf("%w: %s", types.ErrNotAuthorized, message)
}

func boolPtr(v bool) *bool { return &v }
