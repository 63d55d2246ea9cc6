package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/smart-city-assistant/repositories"
	"go.uber.org/zap"
)

const existsByPhoneQuery = `SELECT EXISTS\(SELECT 1 FROM users WHERE phone_number = \$1\)`

func TestInTransaction_CommitsAndRoutesQueries(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())
	repo := NewSubjectRepository(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery(existsByPhoneQuery).
		WithArgs("555-0100").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectCommit()

	err := tm.InTransaction(context.Background(), func(ctx context.Context, _ repositories.Transaction) error {
		taken, err := repo.ExistsByPhone(ctx, "555-0100")
		require.NoError(t, err)
		assert.False(t, taken)
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())
	boom := errors.New("phone taken")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tm.InTransaction(context.Background(), func(context.Context, repositories.Transaction) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_RollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = tm.InTransaction(context.Background(), func(context.Context, repositories.Transaction) error {
			panic("unexpected")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_CommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := tm.InTransaction(context.Background(), func(context.Context, repositories.Transaction) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBegin_NestedReusesOuter(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tm.InTransaction(context.Background(), func(ctx context.Context, outer repositories.Transaction) error {
		return tm.InTransaction(ctx, func(innerCtx context.Context, inner repositories.Transaction) error {
			assert.Same(t, outer.(*Transaction).tx, inner.(*Transaction).tx)
			return nil
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBegin_Error(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err := tm.Begin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}
