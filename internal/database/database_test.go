package database

import (
	"errors"
	"regexp"
	"testing"

	"smartwaste-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestMigrateRunsEveryStatement(t *testing.T) {
	db, mock := newMockDB(t)
	for range migrations {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS bins")).
		WillReturnError(errors.New("permission denied"))

	err := Migrate(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2 failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedBinsSkipsWhenPresent(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bins")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	require.NoError(t, SeedBins(db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedBinsInsertsAll(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bins")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	for range seedBins {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bins")).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, SeedBins(db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := CreateUser(db, &models.User{ID: "u1", Email: "taken@example.com"})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := GetUserByEmail(db, "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs("newhash", int64(100), "tokenhash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ResetPassword(db, "tokenhash", "newhash", 100)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListBinsByRejectsUnknownColumn(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := ListBinsBy(db, "location; DROP TABLE bins", "x")
	require.Error(t, err)
}

func TestNearbyBins(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bins WHERE latitude IS NOT NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "location", "latitude", "longitude", "status", "level", "bin_type", "capacity"}).
			AddRow("far", "Far away", 41.0, -73.9, models.BinStatusNotFull, 0, "paper", 100).
			AddRow("near", "Around the corner", 40.7130, -74.0061, models.BinStatusNotFull, 10, "plastic", 100).
			AddRow("here", "Right here", 40.7128, -74.0060, models.BinStatusFull, 95, "glass", 100))

	bins, err := NearbyBins(db, 40.7128, -74.0060, 1)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, "here", bins[0].ID)
	assert.Equal(t, "near", bins[1].ID)
	assert.Equal(t, 0.0, *bins[0].Distance)
}

func TestHaversineKm(t *testing.T) {
	// London to Paris
	d := HaversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 343.5, d, 1.0)
	assert.Zero(t, HaversineKm(10, 10, 10, 10))
}
