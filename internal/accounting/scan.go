package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smartwaste-backend/internal/ledger"
	"smartwaste-backend/internal/metrics"
	"smartwaste-backend/internal/models"
	"smartwaste-backend/internal/scancodes"
)

type ScanInput struct {
	UserID string
	Code   string
}

type ScanResult struct {
	Code       scancodes.Code
	Credit     Credit
	EmptiedBin *models.Bin
}

// AwardScan credits a user for scanning a recognised QR code. A trash
// collection confirmation also marks the named bin as emptied in the same
// transaction.
func (s *Service) AwardScan(ctx context.Context, in ScanInput) (*ScanResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return nil, invalidInput("user id is required")
	}

	code, err := scancodes.Parse(in.Code)
	if err != nil {
		return nil, invalidInput("qr code is not recognised")
	}

	result := &ScanResult{Code: code}
	now := s.now().Unix()

	err = s.store.WithTx(ctx, func(tx ledger.Tx) error {
		txn := models.Transaction{
			UserID:      in.UserID,
			Amount:      code.Coins,
			Description: fmt.Sprintf("%s: %s", models.TxLabelScan, code.Kind),
			CreatedAt:   now,
		}

		if code.BinID != "" {
			bin, err := s.emptyBinTx(ctx, tx, code.BinID, now)
			if err != nil {
				return err
			}
			txn.BinID = strPtr(bin.ID)
			result.EmptiedBin = bin
		}

		balance, err := tx.AdjustBalance(ctx, in.UserID, code.Coins)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return notFound("user", in.UserID)
			}
			return err
		}
		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return err
		}

		result.Credit = Credit{
			UserID:      in.UserID,
			Amount:      code.Coins,
			NewBalance:  balance,
			Transaction: txn,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("award scan", err)
	}

	metrics.RecordCoinsAwarded("scan", code.Coins)
	return result, nil
}
