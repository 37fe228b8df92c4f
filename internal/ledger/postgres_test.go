package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"smartwaste-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgresStore(sqlx.NewDb(mockDB, "postgres")), mock
}

func TestPostgresStore_AdjustBalanceCommits(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WithArgs(-80, sqlmock.AnyArg(), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"coin_balance"}).AddRow(20))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(ctx, func(tx Tx) error {
		balance, err := tx.AdjustBalance(ctx, "u1", -80)
		if err != nil {
			return err
		}
		assert.Equal(t, 20, balance)
		txn := &models.Transaction{UserID: "u1", Amount: -80, Description: models.TxLabelRedemption}
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		assert.NotEmpty(t, txn.ID)
		assert.NotZero(t, txn.CreatedAt)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AdjustBalanceConflict(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WillReturnRows(sqlmock.NewRows([]string{"coin_balance"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := store.WithTx(ctx, func(tx Tx) error {
		_, err := tx.AdjustBalance(ctx, "u1", -500)
		return err
	})
	require.ErrorIs(t, err, ErrBalanceConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AdjustBalanceMissingUser(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WillReturnRows(sqlmock.NewRows([]string{"coin_balance"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := store.WithTx(ctx, func(tx Tx) error {
		_, err := tx.AdjustBalance(ctx, "ghost", 10)
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LockBinAndUpdate(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bins WHERE id = \$1 FOR UPDATE`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "location", "status", "level", "bin_type", "capacity"}).
			AddRow("b1", "Main St", models.BinStatusNotFull, 20, "plastic", 100))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bins")).
		WithArgs(100, models.BinStatusFull, int64(99), "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(ctx, func(tx Tx) error {
		bin, err := tx.GetBinForUpdate(ctx, "b1")
		if err != nil {
			return err
		}
		assert.Equal(t, 20, bin.Level)
		return tx.SetBinLevel(ctx, "b1", 140, models.BinStatusFull, 99)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetBinLevelMissingRow(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bins")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithTx(ctx, func(tx Tx) error {
		return tx.SetBinLevel(ctx, "nope", 10, models.BinStatusNotFull, 1)
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BeginFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := store.WithTx(context.Background(), func(tx Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}
