package accounting

import (
	"context"
	"errors"
	"log"
	"strings"

	"smartwaste-backend/internal/ledger"
	"smartwaste-backend/internal/models"
)

const (
	coinsPerStep   = 5
	levelStepWidth = 10
)

// BinFillInput is a sensor or manual fill-level report for a bin. At least
// one of Level and Status must be set. With no UserID, coins earned by the
// increase are shared with every user.
type BinFillInput struct {
	BinID     string
	Level     *int
	Status    *string
	Distance  *float64
	DeviceID  *string
	Timestamp *int64
	UserID    *string
}

// AwardFailure records a user who could not be credited. UserID is empty
// when the recipient list itself could not be read.
type AwardFailure struct {
	UserID string
	Err    error
}

type BinFillResult struct {
	Bin           models.Bin
	PreviousLevel int
	LevelIncrease int
	CoinsAwarded  int
	Community     bool
	Credits       []Credit
	Failures      []AwardFailure
}

// AwardComplete reports whether every intended credit was applied
func (r *BinFillResult) AwardComplete() bool {
	return len(r.Failures) == 0
}

// CoinsForIncrease converts a fill-level increase into coins: 5 coins for
// every full 10 points. Decreases earn nothing.
func CoinsForIncrease(increase int) int {
	if increase <= 0 {
		return 0
	}
	return (increase / levelStepWidth) * coinsPerStep
}

func (in *BinFillInput) normalize() error {
	in.BinID = strings.TrimSpace(in.BinID)
	if in.BinID == "" {
		return invalidInput("bin id is required")
	}
	if in.Status != nil {
		status := strings.TrimSpace(*in.Status)
		if status == "" {
			in.Status = nil
		} else {
			in.Status = &status
		}
	}
	if in.Level == nil && in.Status == nil {
		return invalidInput("level or status is required")
	}
	if in.UserID != nil && strings.TrimSpace(*in.UserID) == "" {
		in.UserID = nil
	}
	return nil
}

// UpdateBinFill stores a new level/status for a bin and awards coins for the
// increase. The bin update commits on its own; awarding happens afterwards
// and any failure there is reported in the result without undoing the
// bin update.
func (s *Service) UpdateBinFill(ctx context.Context, in BinFillInput) (*BinFillResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetBin(ctx, in.BinID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, notFound("bin", in.BinID)
		}
		return nil, s.fail("read bin", err)
	}

	result := &BinFillResult{}
	now := s.now().Unix()

	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		bin, err := tx.GetBinForUpdate(ctx, in.BinID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return notFound("bin", in.BinID)
			}
			return err
		}

		level := bin.Level
		if in.Level != nil {
			level = models.ClampLevel(*in.Level)
		}
		status := models.DeriveBinStatus(level)
		if in.Status != nil {
			status = *in.Status
		}

		if err := tx.SetBinLevel(ctx, bin.ID, level, status, now); err != nil {
			return err
		}

		readAt := now
		if in.Timestamp != nil && *in.Timestamp > 0 {
			readAt = *in.Timestamp
		}
		if err := tx.InsertReading(ctx, &models.BinReading{
			BinID:    bin.ID,
			Level:    level,
			Status:   status,
			Distance: in.Distance,
			DeviceID: in.DeviceID,
			UserID:   in.UserID,
			ReadAt:   readAt,
		}); err != nil {
			return err
		}

		result.PreviousLevel = bin.Level
		result.LevelIncrease = max(0, level-bin.Level)

		bin.Level = level
		bin.Status = status
		bin.UpdatedAt = now
		result.Bin = *bin
		return nil
	})
	if err != nil {
		return nil, s.fail("update bin level", err)
	}

	result.CoinsAwarded = CoinsForIncrease(result.LevelIncrease)
	if result.CoinsAwarded == 0 {
		return result, nil
	}

	if in.UserID != nil {
		s.awardUser(ctx, result, *in.UserID)
	} else {
		s.awardCommunity(ctx, result)
	}
	return result, nil
}

func (s *Service) awardUser(ctx context.Context, result *BinFillResult, userID string) {
	c, err := s.credit(ctx, models.Transaction{
		UserID:      userID,
		BinID:       strPtr(result.Bin.ID),
		Amount:      result.CoinsAwarded,
		Description: models.TxLabelBinFill,
	}, "bin_fill")
	if err != nil {
		log.Printf("⚠️  Bin %s: failed to award %d coins to user %s: %v", result.Bin.ID, result.CoinsAwarded, userID, err)
		result.Failures = append(result.Failures, AwardFailure{UserID: userID, Err: err})
		return
	}
	result.Credits = append(result.Credits, *c)
	log.Printf("🪙 Bin %s: +%d coins to user %s (balance %d)", result.Bin.ID, c.Amount, userID, c.NewBalance)
}

// awardCommunity credits every user from a single snapshot of user ids.
// Each credit is its own atomic unit; a failed credit is logged and
// collected, and the remaining users are still processed.
func (s *Service) awardCommunity(ctx context.Context, result *BinFillResult) {
	result.Community = true

	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		err = s.fail("list users", err)
		log.Printf("❌ Bin %s: community reward aborted, could not list users: %v", result.Bin.ID, err)
		result.Failures = append(result.Failures, AwardFailure{Err: err})
		return
	}

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("🌍 COMMUNITY REWARD: bin %s %d%% → %d%%", result.Bin.ID, result.PreviousLevel, result.Bin.Level)
	log.Printf("   🪙 %d coins × %d users", result.CoinsAwarded, len(userIDs))

	for _, id := range userIDs {
		c, err := s.credit(ctx, models.Transaction{
			UserID:      id,
			BinID:       strPtr(result.Bin.ID),
			Amount:      result.CoinsAwarded,
			Description: models.TxLabelCommunityReward,
		}, "community")
		if err != nil {
			log.Printf("   ⚠️  Skipping user %s: %v", id, err)
			result.Failures = append(result.Failures, AwardFailure{UserID: id, Err: err})
			continue
		}
		result.Credits = append(result.Credits, *c)
	}

	log.Printf("   ✅ Credited: %d, ❌ Failed: %d", len(result.Credits), len(result.Failures))
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// EmptyBin marks a bin as collected: level 0, status derived, last emptied
// now. No coins change hands.
func (s *Service) EmptyBin(ctx context.Context, binID string) (*models.Bin, error) {
	binID = strings.TrimSpace(binID)
	if binID == "" {
		return nil, invalidInput("bin id is required")
	}

	var emptied models.Bin
	now := s.now().Unix()
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		bin, err := s.emptyBinTx(ctx, tx, binID, now)
		if err != nil {
			return err
		}
		emptied = *bin
		return nil
	})
	if err != nil {
		return nil, s.fail("empty bin", err)
	}
	return &emptied, nil
}

func (s *Service) emptyBinTx(ctx context.Context, tx ledger.Tx, binID string, now int64) (*models.Bin, error) {
	bin, err := tx.GetBinForUpdate(ctx, binID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, notFound("bin", binID)
		}
		return nil, err
	}

	status := models.DeriveBinStatus(0)
	if err := tx.EmptyBin(ctx, binID, status, now); err != nil {
		return nil, err
	}
	if err := tx.InsertReading(ctx, &models.BinReading{
		BinID:  binID,
		Level:  0,
		Status: status,
		ReadAt: now,
	}); err != nil {
		return nil, err
	}

	bin.Level = 0
	bin.Status = status
	bin.LastEmptied = &now
	bin.UpdatedAt = now
	return bin, nil
}
