package accounting

import (
	"errors"
	"fmt"

	"smartwaste-backend/internal/ledger"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStoreFailure        = errors.New("store failure")

	// ErrNotificationFailure is advisory. It only ever appears inside a
	// successful RedemptionResult.
	ErrNotificationFailure = errors.New("notification failure")
)

// InsufficientBalanceError carries the figures a caller needs to explain
// why a redemption was refused
type InsufficientBalanceError struct {
	CurrentBalance int
	RequiredCost   int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.CurrentBalance, e.RequiredCost)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFoundError names the missing entity ("user" or "bin")
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrNotFound, e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// storeError passes domain errors through and tags everything else as a
// store failure
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientBalance):
		return err
	case errors.Is(err, ledger.ErrNotFound):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
	}
}
