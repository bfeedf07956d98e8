package txn

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/uptrace/bun"
)

// Func is the body executed inside a unit of work. The context carries the
// active transaction so repositories invoked from fn join it.
type Func func(ctx context.Context, tx bun.IDB) error

// Manager scopes units of work on a bun database.
type Manager struct {
	db     *bun.DB
	driver string
	logger types.Logger
}

// Config wires the transaction manager.
type Config struct {
	DB     *bun.DB
	Logger types.Logger
}

// New constructs a Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.DB == nil {
		return nil, errors.New("txn: db required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Manager{
		db:     cfg.DB,
		driver: repository.DetectDriver(cfg.DB),
		logger: logger,
	}, nil
}

type txKey struct{}

// FromContext returns the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (bun.Tx, bool) {
	if ctx == nil {
		return bun.Tx{}, false
	}
	tx, ok := ctx.Value(txKey{}).(bun.Tx)
	return tx, ok
}

// WithContext stores tx on ctx so nested calls join it.
func WithContext(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// DB returns the transaction carried by ctx or the underlying database.
func (m *Manager) DB(ctx context.Context) bun.IDB {
	if tx, ok := FromContext(ctx); ok {
		return tx
	}
	return m.db
}

// WithTx runs fn inside a transaction. When ctx already carries one, fn joins
// it and the outermost call decides commit or rollback. Otherwise a new
// transaction is opened, committed when fn returns nil and rolled back
// otherwise; the connection is released on every path, panics included.
func (m *Manager) WithTx(ctx context.Context, fn Func) error {
	if tx, ok := FromContext(ctx); ok {
		return m.classify(fn(ctx, tx))
	}
	err := m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(WithContext(ctx, tx), tx)
	})
	if err != nil {
		m.logger.Debug("txn: unit of work rolled back", "error", err)
	}
	return m.classify(err)
}

// WithReadTx is WithTx for read-only bodies. The store still sees a single
// consistent snapshot for every statement issued by fn.
func (m *Manager) WithReadTx(ctx context.Context, fn Func) error {
	return m.WithTx(ctx, fn)
}

// Run is WithTx for callers that only need the ambient transaction on ctx.
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.WithTx(ctx, func(ctx context.Context, _ bun.IDB) error {
		return fn(ctx)
	})
}

func (m *Manager) classify(err error) error {
	return Classify(err, m.driver)
}

// Classify maps raw driver errors onto the storage taxonomy. Errors already
// classified, and errors that are neither connection nor constraint failures,
// are returned unchanged.
func Classify(err error, driverName string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrIntegrityViolation) ||
		errors.Is(err, types.ErrStorageUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	if IsConstraintError(err, driverName) {
		return fmt.Errorf("%w: %v", types.ErrIntegrityViolation, err)
	}
	return err
}

// IsConnectionError reports transport level failures talking to the store.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unable to open database file") ||
		strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "failed to connect")
}

// IsConstraintError reports unique, foreign key, not-null and check violations.
func IsConstraintError(err error, driverName string) bool {
	if err == nil {
		return false
	}
	if repository.IsDuplicatedKey(repository.MapDatabaseError(err, driverName)) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range constraintMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var constraintMarkers = []string{
	"constraint failed",
	"unique constraint",
	"foreign key constraint",
	"violates not-null constraint",
	"violates check constraint",
	"sqlstate 23",
}
