package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartwaste-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	userColumns = `id, first_name, last_name, email, password, coin_balance, scan_token,
		reset_token_hash, reset_token_expires, created_at, updated_at`

	binColumns = `id, location, latitude, longitude, status, level, bin_type, capacity,
		last_emptied, created_at, updated_at`
)

// PostgresStore implements Store on top of a sqlx connection pool
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool. The pool's lifecycle
// stays with the caller.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx begins a read-committed transaction, runs fn and commits.
// Rows read through the Tx are locked with SELECT ... FOR UPDATE.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	var bin models.Bin
	err := s.db.GetContext(ctx, &bin, `SELECT `+binColumns+` FROM bins WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bin: %w", err)
	}
	return &bin, nil
}

func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY created_at ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) GetUserForUpdate(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := t.tx.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return &user, nil
}

func (t *pgTx) GetBinForUpdate(ctx context.Context, id string) (*models.Bin, error) {
	var bin models.Bin
	err := t.tx.GetContext(ctx, &bin, `SELECT `+binColumns+` FROM bins WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock bin: %w", err)
	}
	return &bin, nil
}

func (t *pgTx) SetBinLevel(ctx context.Context, binID string, level int, status string, at int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE bins
		SET level = $1, status = $2, updated_at = $3
		WHERE id = $4
	`, models.ClampLevel(level), status, at, binID)
	if err != nil {
		return fmt.Errorf("failed to update bin level: %w", err)
	}
	return requireRow(result)
}

func (t *pgTx) EmptyBin(ctx context.Context, binID string, status string, at int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE bins
		SET level = 0, status = $1, last_emptied = $2, updated_at = $2
		WHERE id = $3
	`, status, at, binID)
	if err != nil {
		return fmt.Errorf("failed to empty bin: %w", err)
	}
	return requireRow(result)
}

func (t *pgTx) AdjustBalance(ctx context.Context, userID string, delta int) (int, error) {
	var balance int
	err := t.tx.GetContext(ctx, &balance, `
		UPDATE users
		SET coin_balance = coin_balance + $1, updated_at = $2
		WHERE id = $3 AND coin_balance + $1 >= 0
		RETURNING coin_balance
	`, delta, time.Now().Unix(), userID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}

	// No row updated: either the user is gone or the guard refused the debit
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
		return 0, fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrBalanceConflict
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = time.Now().Unix()
	}

	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO transactions (id, user_id, bin_id, amount, waste_type, weight, description, reward_id, created_at)
		VALUES (:id, :user_id, :bin_id, :amount, :waste_type, :weight, :description, :reward_id, :created_at)
	`, txn)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (t *pgTx) InsertReading(ctx context.Context, r *models.BinReading) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ReadAt == 0 {
		r.ReadAt = time.Now().Unix()
	}

	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO bin_readings (id, bin_id, level, status, distance, device_id, user_id, read_at)
		VALUES (:id, :bin_id, :level, :status, :distance, :device_id, :user_id, :read_at)
	`, r)
	if err != nil {
		return fmt.Errorf("failed to insert bin reading: %w", err)
	}
	return nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
