package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/smart-city-assistant/repositories"
	"go.uber.org/zap"
)

type txKey struct{}

// Executor runs statements on either the pool or a transaction
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetExecutor returns the transaction carried by ctx, or the pool.
// Registration relies on this so the duplicate checks and the insert share one transaction.
func GetExecutor(ctx context.Context, db *DB) Executor {
	if tx, ok := ctx.Value(txKey{}).(*Transaction); ok {
		return tx.tx
	}
	return db.DB
}

// TransactionManager opens transactions on the pool
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a TransactionManager
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// Begin starts a transaction whose Context() routes repository calls into it.
// Nested Begin calls on a context that already carries a transaction reuse it.
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if outer, ok := ctx.Value(txKey{}).(*Transaction); ok {
		return &Transaction{tx: outer.tx, ctx: ctx, logger: tm.logger, nested: true}, nil
	}

	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Transaction{tx: sqlTx, logger: tm.logger}
	tx.ctx = context.WithValue(ctx, txKey{}, tx)
	return tx, nil
}

// InTransaction runs fn inside a transaction, committing on success. An error
// or a panic from fn rolls back; the panic is re-raised afterwards.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) (err error) {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			tm.logger.Error("failed to rollback transaction", zap.Error(rbErr), zap.NamedError("cause", err))
		}
	}()

	if err = fn(tx.Context(), tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Transaction wraps *sql.Tx. A nested transaction leaves commit and rollback
// to the outermost owner.
type Transaction struct {
	tx     *sql.Tx
	ctx    context.Context
	logger *zap.Logger
	nested bool
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if t.nested {
		return nil
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	if t.nested {
		return nil
	}
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("transaction rolled back")
	return nil
}

// Context returns the transaction-bound context
func (t *Transaction) Context() context.Context {
	return t.ctx
}
