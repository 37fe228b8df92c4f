// Package accounting turns bin fill changes, waste deposits, QR scans and
// reward redemptions into coin balance changes. Every balance change is
// written together with exactly one transaction record in a single store
// transaction.
package accounting

import (
	"context"
	"errors"
	"time"

	"smartwaste-backend/internal/ledger"
	"smartwaste-backend/internal/metrics"
	"smartwaste-backend/internal/models"
)

// RewardNotifier delivers the confirmation for a committed redemption
type RewardNotifier interface {
	SendRewardConfirmation(ctx context.Context, user models.User, rewardName string, cost, newBalance int) error
}

type Service struct {
	store    ledger.Store
	notifier RewardNotifier
	now      func() time.Time
}

// NewService wires the accounting rules to a ledger store. notifier may be
// nil, in which case redemptions are committed without a confirmation.
func NewService(store ledger.Store, notifier RewardNotifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// Credit is a committed balance increase for one user
type Credit struct {
	UserID      string
	Amount      int
	NewBalance  int
	Transaction models.Transaction
}

// credit applies one balance increase and its transaction as one atomic unit
func (s *Service) credit(ctx context.Context, txn models.Transaction, source string) (*Credit, error) {
	var balance int
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		b, err := tx.AdjustBalance(ctx, txn.UserID, txn.Amount)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return notFound("user", txn.UserID)
			}
			return err
		}
		balance = b
		return tx.InsertTransaction(ctx, &txn)
	})
	if err != nil {
		return nil, s.fail("credit "+source, err)
	}

	metrics.RecordCoinsAwarded(source, txn.Amount)
	return &Credit{
		UserID:      txn.UserID,
		Amount:      txn.Amount,
		NewBalance:  balance,
		Transaction: txn,
	}, nil
}

// fail classifies err and counts it when the store itself failed
func (s *Service) fail(op string, err error) error {
	err = storeError(op, err)
	if errors.Is(err, ErrStoreFailure) {
		metrics.RecordStoreFailure(op)
	}
	return err
}

func strPtr(s string) *string {
	return &s
}
