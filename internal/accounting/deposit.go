package accounting

import (
	"context"
	"errors"
	"math"
	"strings"

	"smartwaste-backend/internal/ledger"
	"smartwaste-backend/internal/metrics"
	"smartwaste-backend/internal/models"
)

const (
	// maxDepositLevelIncrease caps how far a single deposit can raise a bin
	maxDepositLevelIncrease = 20

	// maxCoinAmount bounds a single credit or debit to what the INT columns
	// of the ledger can hold
	maxCoinAmount = math.MaxInt32
)

type DepositInput struct {
	UserID      string
	BinID       string
	WasteType   string
	Weight      *float64
	CoinsEarned int
}

type DepositResult struct {
	Transaction   models.Transaction
	CoinBalance   int
	Bin           models.Bin
	LevelIncrease int
}

// DepositLevelIncrease is the fill increase caused by a deposit of the
// given weight: two points per unit of weight, at most 20. The cap is taken
// before the int conversion so huge weights cannot wrap.
func DepositLevelIncrease(weight float64) int {
	return int(min(math.Round(weight*2), maxDepositLevelIncrease))
}

func (in *DepositInput) normalize() error {
	in.UserID = strings.TrimSpace(in.UserID)
	in.BinID = strings.TrimSpace(in.BinID)
	in.WasteType = strings.ToLower(strings.TrimSpace(in.WasteType))

	if in.UserID == "" {
		return invalidInput("user id is required")
	}
	if in.BinID == "" || in.WasteType == "" || in.CoinsEarned == 0 {
		return invalidInput("bin id, waste type, and coins earned are required")
	}
	if in.CoinsEarned < 0 {
		return invalidInput("coins earned must be positive")
	}
	if in.CoinsEarned > maxCoinAmount {
		return invalidInput("coins earned must not exceed %d", maxCoinAmount)
	}
	if !models.WasteTypes[in.WasteType] {
		return invalidInput("unknown waste type %q", in.WasteType)
	}
	if in.Weight != nil {
		w := *in.Weight
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return invalidInput("weight must be a non-negative number")
		}
	}
	return nil
}

// RecordDeposit logs a waste deposit, credits the depositor and raises the
// bin level by the deposit's weight, all as one atomic unit.
func (s *Service) RecordDeposit(ctx context.Context, in DepositInput) (*DepositResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	result := &DepositResult{}
	now := s.now().Unix()

	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.GetUserForUpdate(ctx, in.UserID); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return notFound("user", in.UserID)
			}
			return err
		}
		bin, err := tx.GetBinForUpdate(ctx, in.BinID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return notFound("bin", in.BinID)
			}
			return err
		}

		txn := models.Transaction{
			UserID:      in.UserID,
			BinID:       strPtr(in.BinID),
			Amount:      in.CoinsEarned,
			WasteType:   strPtr(in.WasteType),
			Weight:      in.Weight,
			Description: models.TxLabelDeposit,
			CreatedAt:   now,
		}
		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return err
		}

		balance, err := tx.AdjustBalance(ctx, in.UserID, in.CoinsEarned)
		if err != nil {
			return err
		}

		if in.Weight != nil {
			increase := DepositLevelIncrease(*in.Weight)
			level := models.ClampLevel(bin.Level + increase)
			if level != bin.Level {
				status := models.DeriveBinStatus(level)
				if err := tx.SetBinLevel(ctx, bin.ID, level, status, now); err != nil {
					return err
				}
				result.LevelIncrease = level - bin.Level
				bin.Level = level
				bin.Status = status
				bin.UpdatedAt = now
			}
		}

		result.Transaction = txn
		result.CoinBalance = balance
		result.Bin = *bin
		return nil
	})
	if err != nil {
		return nil, s.fail("record deposit", err)
	}

	metrics.RecordCoinsAwarded("deposit", in.CoinsEarned)
	return result, nil
}
