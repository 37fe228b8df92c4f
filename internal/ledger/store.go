// Package ledger holds the transactional store behind coin accounting:
// user balances, bin fill levels and the append-only transaction log.
package ledger

import (
	"context"
	"errors"

	"smartwaste-backend/internal/models"
)

var (
	// ErrNotFound is returned when a user or bin row does not exist
	ErrNotFound = errors.New("not found")

	// ErrBalanceConflict is returned when a balance adjustment would drive
	// the balance negative
	ErrBalanceConflict = errors.New("balance would become negative")
)

// Store is the entry point to the ledger. Reads outside WithTx see
// committed state only.
type Store interface {
	// WithTx runs fn inside a single store transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetBin(ctx context.Context, id string) (*models.Bin, error)

	// ListUserIDs returns a snapshot of every known user id
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Tx is the set of operations available inside a store transaction
type Tx interface {
	// GetUserForUpdate reads a user and holds its row until the
	// transaction ends
	GetUserForUpdate(ctx context.Context, id string) (*models.User, error)

	// GetBinForUpdate reads a bin and holds its row until the transaction ends
	GetBinForUpdate(ctx context.Context, id string) (*models.Bin, error)

	// SetBinLevel stores an absolute level and status for a bin
	SetBinLevel(ctx context.Context, binID string, level int, status string, at int64) error

	// EmptyBin resets a bin to level 0 and records when it happened
	EmptyBin(ctx context.Context, binID string, status string, at int64) error

	// AdjustBalance adds delta (which may be negative) to a user's balance
	// and returns the new balance. It fails with ErrBalanceConflict rather
	// than let the balance drop below zero.
	AdjustBalance(ctx context.Context, userID string, delta int) (int, error)

	// InsertTransaction appends a ledger entry
	InsertTransaction(ctx context.Context, t *models.Transaction) error

	// InsertReading appends a bin fill-level reading
	InsertReading(ctx context.Context, r *models.BinReading) error
}
