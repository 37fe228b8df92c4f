package handlers

import (
	"net/http"
	"time"

	"smartwaste-backend/internal/models"
	"smartwaste-backend/pkg/utils"
)

func GetRewards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"rewards": models.RewardCatalogue,
		})
	}
}

func GetEmailStatus(email EmailStatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, email.Status())
	}
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "OK",
			"message":   "Smart Waste Management API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
