package services

import (
	"context"
	"fmt"

	"github.com/upb/smart-city-assistant/repositories"
)

// WithTransaction executes fn within a database transaction.
// fn receives the transaction-bound context so repositories pick up the tx.
// Commits on success, rolls back on error or panic.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	_, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult executes fn within a database transaction and returns its result.
// The caller's error is kept as the primary error so domain error types survive a failed rollback.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var result T

	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txCtx := tx.Context()
	if txCtx == nil {
		txCtx = ctx
	}

	result, err = fn(txCtx, tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return result, fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return result, err
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}
