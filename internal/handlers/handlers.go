package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"smartwaste-backend/internal/accounting"
	"smartwaste-backend/internal/models"
	"smartwaste-backend/internal/services"
	"smartwaste-backend/pkg/utils"
)

// LiveUpdates pushes balance and bin changes to connected clients.
// *websocket.Hub satisfies it.
type LiveUpdates interface {
	NotifyBalance(userID string, balance, delta int, reason string)
	NotifyBin(bin interface{})
}

// CommunityNotifier announces a community reward to every device
type CommunityNotifier interface {
	NotifyCommunityReward(ctx context.Context, binLocation string, coins int)
}

type WelcomeSender interface {
	SendWelcome(ctx context.Context, user models.User) error
}

type EmailStatusReporter interface {
	Status() services.EmailStatus
}

// respondAccountingError maps accounting failures onto HTTP statuses. Only
// the balance shortfall is echoed back; everything else gets a fixed message
// and the full error goes to the log.
func respondAccountingError(w http.ResponseWriter, op string, err error) {
	var insufficient *accounting.InsufficientBalanceError
	var missing *accounting.NotFoundError
	switch {
	case errors.As(err, &insufficient):
		utils.RespondErrorWith(w, http.StatusConflict, "Insufficient coin balance", map[string]interface{}{
			"currentBalance": insufficient.CurrentBalance,
			"requiredCost":   insufficient.RequiredCost,
		})
	case errors.Is(err, accounting.ErrInvalidInput):
		log.Printf("⚠️  Rejected %s: %v", op, err)
		utils.RespondError(w, http.StatusBadRequest, "Invalid request")
	case errors.As(err, &missing) && missing.Entity == "user":
		utils.RespondError(w, http.StatusNotFound, "User not found")
	case errors.As(err, &missing) && missing.Entity == "bin":
		utils.RespondError(w, http.StatusNotFound, "Bin not found")
	case errors.Is(err, accounting.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "Not found")
	default:
		log.Printf("❌ Failed to %s: %v", op, err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}

// pushBalances announces every credit of a bin fill to its owner
func pushBalances(live LiveUpdates, credits []accounting.Credit, reason string) {
	if live == nil {
		return
	}
	for _, c := range credits {
		live.NotifyBalance(c.UserID, c.NewBalance, c.Amount, reason)
	}
}

func pushBin(live LiveUpdates, bin models.Bin) {
	if live == nil {
		return
	}
	live.NotifyBin(bin.ToBinResponse())
}
