package accounting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"smartwaste-backend/internal/ledger"
	"smartwaste-backend/internal/metrics"
	"smartwaste-backend/internal/models"
)

type RedemptionInput struct {
	UserID     string
	RewardID   string
	RewardName string
	Cost       int
}

// NotificationOutcome is the advisory result of the confirmation sent after
// a redemption commits
type NotificationOutcome struct {
	Attempted bool
	Sent      bool
	Err       error
}

type RedemptionResult struct {
	Transaction  models.Transaction
	NewBalance   int
	User         models.User
	Notification NotificationOutcome
}

func (in *RedemptionInput) normalize() error {
	in.UserID = strings.TrimSpace(in.UserID)
	in.RewardID = strings.TrimSpace(in.RewardID)
	in.RewardName = strings.TrimSpace(in.RewardName)

	if in.UserID == "" || in.RewardName == "" {
		return invalidInput("user id and reward name are required")
	}
	if in.Cost <= 0 {
		return invalidInput("cost must be positive")
	}
	if in.Cost > maxCoinAmount {
		return invalidInput("cost must not exceed %d", maxCoinAmount)
	}
	return nil
}

// Redeem debits a reward's cost from a user. The balance check and debit
// happen under a row lock in the same transaction, and the debit itself is
// guarded against going negative, so concurrent redemptions cannot both
// pass against a stale balance. The confirmation is sent after commit and
// its outcome never undoes the redemption.
func (s *Service) Redeem(ctx context.Context, in RedemptionInput) (*RedemptionResult, error) {
	if err := in.normalize(); err != nil {
		metrics.RecordRedemption("invalid")
		return nil, err
	}

	result := &RedemptionResult{}
	now := s.now().Unix()

	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		user, err := tx.GetUserForUpdate(ctx, in.UserID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return notFound("user", in.UserID)
			}
			return err
		}

		if user.CoinBalance < in.Cost {
			return &InsufficientBalanceError{CurrentBalance: user.CoinBalance, RequiredCost: in.Cost}
		}

		balance, err := tx.AdjustBalance(ctx, in.UserID, -in.Cost)
		if errors.Is(err, ledger.ErrBalanceConflict) {
			return &InsufficientBalanceError{CurrentBalance: user.CoinBalance, RequiredCost: in.Cost}
		}
		if err != nil {
			return err
		}

		txn := models.Transaction{
			UserID:      in.UserID,
			Amount:      -in.Cost,
			Description: fmt.Sprintf("%s: %s", models.TxLabelRedemption, in.RewardName),
			CreatedAt:   now,
		}
		if in.RewardID != "" {
			txn.RewardID = strPtr(in.RewardID)
		}
		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return err
		}

		user.CoinBalance = balance
		result.User = *user
		result.NewBalance = balance
		result.Transaction = txn
		return nil
	})
	if err != nil {
		err = s.fail("redeem", err)
		metrics.RecordRedemption(redemptionOutcome(err))
		return nil, err
	}

	metrics.RecordRedemption("success")
	log.Printf("🎁 Redeemed %q for user %s: -%d coins (balance %d)", in.RewardName, in.UserID, in.Cost, result.NewBalance)

	result.Notification = s.notifyRedemption(ctx, result.User, in.RewardName, in.Cost, result.NewBalance)
	return result, nil
}

func (s *Service) notifyRedemption(ctx context.Context, user models.User, rewardName string, cost, newBalance int) NotificationOutcome {
	if s.notifier == nil {
		return NotificationOutcome{}
	}

	if err := s.notifier.SendRewardConfirmation(ctx, user, rewardName, cost, newBalance); err != nil {
		log.Printf("⚠️  Reward confirmation for user %s not delivered: %v", user.ID, err)
		return NotificationOutcome{
			Attempted: true,
			Err:       fmt.Errorf("%w: %w", ErrNotificationFailure, err),
		}
	}
	return NotificationOutcome{Attempted: true, Sent: true}
}

func redemptionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
