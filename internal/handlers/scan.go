package handlers

import (
	"net/http"

	"smartwaste-backend/internal/accounting"
	"smartwaste-backend/internal/middleware"
	"smartwaste-backend/internal/models"
	"smartwaste-backend/pkg/utils"
)

// ScanCode credits the caller for a scanned QR payload
func ScanCode(svc *accounting.Service, live LiveUpdates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			Code string `json:"code"`
		}
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := svc.AwardScan(r.Context(), accounting.ScanInput{UserID: claims.UserID, Code: req.Code})
		if err != nil {
			respondAccountingError(w, "process scan", err)
			return
		}

		if live != nil {
			live.NotifyBalance(claims.UserID, result.Credit.NewBalance, result.Credit.Amount, models.TxLabelScan)
		}

		body := map[string]interface{}{
			"success":       true,
			"kind":          result.Code.Kind,
			"coinsEarned":   result.Credit.Amount,
			"coinBalance":   result.Credit.NewBalance,
			"transactionId": result.Credit.Transaction.ID,
		}
		if result.EmptiedBin != nil {
			pushBin(live, *result.EmptiedBin)
			body["bin"] = result.EmptiedBin.ToBinResponse()
		}
		utils.RespondJSON(w, http.StatusOK, body)
	}
}
