package query

import (
	"context"
	"errors"

	"github.com/goliatone/go-star/pkg/types"
)

const (
	defaultAuditLimit = 10
	maxAuditLimit     = 200
)

var (
	// ErrUserIDRequired is returned by per-user queries without a user.
	ErrUserIDRequired = types.ErrUserIDRequired
	// ErrMissingActionCounter indicates the audit store cannot aggregate.
	ErrMissingActionCounter = errors.New("go-star: missing audit action counter")
)

// Transactor opens a read unit of work. txn.Manager satisfies it.
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

func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultAuditLimit
	case limit > maxAuditLimit:
		return maxAuditLimit
	default:
		return limit
	}
}
