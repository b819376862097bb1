package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "desarquivamento/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// DefaultTimeout bounds a transaction when the caller context has no deadline.
const DefaultTimeout = 5 * time.Second

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner runs a function inside a transactional boundary. The function
// receives a context carrying the transaction; stores pick it up via From.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopRunner calls fn directly. Used with in-memory stores, which are
// already safe for concurrent use.
type NoopRunner struct{}

func (NoopRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

// SQLRunner opens a database/sql transaction per call.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLRunner builds a Runner backed by db. A zero timeout uses DefaultTimeout.
func NewSQLRunner(db *sql.DB, timeout time.Duration) *SQLRunner {
	return &SQLRunner{db: db, timeout: timeout}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, nested := From(ctx); nested {
		return fn(ctx)
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to commit transaction")
	}
	return nil
}
