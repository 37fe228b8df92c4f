package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"smartwaste-backend/internal/accounting"
	"smartwaste-backend/internal/database"
	"smartwaste-backend/internal/middleware"
	"smartwaste-backend/internal/models"
	"smartwaste-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// requireSelf rejects requests whose path user differs from the caller
func requireSelf(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	id := chi.URLParam(r, "id")
	if id != claims.UserID {
		log.Printf("❌ User %s tried to act on account %s", claims.UserID, id)
		utils.RespondError(w, http.StatusForbidden, "You can only modify your own account")
		return "", false
	}
	return id, true
}

func GetUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := loadUser(w, db, chi.URLParam(r, "id"))
		if !ok {
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"user": user.ToUserResponse(),
		})
	}
}

func GetUserCoins(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := loadUser(w, db, chi.URLParam(r, "id"))
		if !ok {
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"coinBalance": user.CoinBalance,
		})
	}
}

func loadUser(w http.ResponseWriter, db *sqlx.DB, id string) (*models.User, bool) {
	user, err := database.GetUserByID(db, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return nil, false
		}
		log.Printf("❌ %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch user")
		return nil, false
	}
	return user, true
}

func GetUserTransactions(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		limit, err := utils.QueryInt(r, "limit", 50, 200)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		offset, err := utils.QueryInt(r, "offset", 0, 0)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		txns, err := database.GetUserTransactions(db, id, limit, offset)
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch transactions")
			return
		}

		responses := make([]models.TransactionResponse, len(txns))
		for i, t := range txns {
			responses[i] = t.ToTransactionResponse()
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": responses,
		})
	}
}

// RecordDeposit credits the caller for waste dropped into a bin
func RecordDeposit(svc *accounting.Service, live LiveUpdates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireSelf(w, r)
		if !ok {
			return
		}

		var req models.DepositRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := svc.RecordDeposit(r.Context(), accounting.DepositInput{
			UserID:      userID,
			BinID:       req.BinID,
			WasteType:   req.WasteType,
			Weight:      req.Weight,
			CoinsEarned: req.CoinsEarned,
		})
		if err != nil {
			respondAccountingError(w, "record transaction", err)
			return
		}

		if live != nil {
			live.NotifyBalance(userID, result.CoinBalance, result.Transaction.Amount, models.TxLabelDeposit)
		}
		pushBin(live, result.Bin)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message":       "Transaction recorded successfully",
			"coinBalance":   result.CoinBalance,
			"transactionId": result.Transaction.ID,
			"bin":           result.Bin.ToBinResponse(),
		})
	}
}

// Redeem spends the caller's coins on a reward. A catalogue reward must be
// redeemed at its listed cost.
func Redeem(svc *accounting.Service, live LiveUpdates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireSelf(w, r)
		if !ok {
			return
		}

		var req models.RedeemRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		rewardID := strings.TrimSpace(string(req.RewardID))
		if reward, found := models.FindReward(rewardID); found {
			if req.Cost != reward.Cost {
				utils.RespondError(w, http.StatusBadRequest, "Cost does not match the reward catalogue")
				return
			}
			if strings.TrimSpace(req.RewardName) == "" {
				req.RewardName = reward.Name
			}
		}

		log.Printf("🎁 Redemption request: user %s, reward %q, cost %d", userID, req.RewardName, req.Cost)

		result, err := svc.Redeem(r.Context(), accounting.RedemptionInput{
			UserID:     userID,
			RewardID:   rewardID,
			RewardName: req.RewardName,
			Cost:       req.Cost,
		})
		if err != nil {
			respondAccountingError(w, "redeem reward", err)
			return
		}

		if live != nil {
			live.NotifyBalance(userID, result.NewBalance, result.Transaction.Amount, models.TxLabelRedemption)
		}

		body := map[string]interface{}{
			"success":       true,
			"message":       "Reward redeemed successfully",
			"newBalance":    result.NewBalance,
			"transactionId": result.Transaction.ID,
			"emailSent":     result.Notification.Sent,
		}
		if result.Notification.Err != nil {
			body["notificationError"] = "Confirmation email could not be sent"
		}
		utils.RespondJSON(w, http.StatusOK, body)
	}
}

func GetLeaderboard(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := utils.QueryInt(r, "limit", 10, 100)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		entries, err := database.GetLeaderboard(db, limit)
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"leaderboard": entries,
		})
	}
}

func RegisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireSelf(w, r)
		if !ok {
			return
		}

		var req struct {
			Token      string `json:"token"`
			DeviceType string `json:"device_type"`
		}
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if strings.TrimSpace(req.Token) == "" {
			utils.RespondError(w, http.StatusBadRequest, "Token is required")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" && req.DeviceType != "web" {
			utils.RespondError(w, http.StatusBadRequest, "Invalid device_type (must be 'ios', 'android' or 'web')")
			return
		}

		if err := database.UpsertFCMToken(db, userID, req.Token, req.DeviceType, time.Now().Unix()); err != nil {
			log.Printf("❌ Error registering FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to register FCM token")
			return
		}

		log.Printf("📱 FCM token registered: %s (%s)", userID, req.DeviceType)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "FCM token registered successfully",
		})
	}
}
