package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smartwaste-backend/internal/accounting"
	"smartwaste-backend/internal/database"
	"smartwaste-backend/internal/models"
	"smartwaste-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func binResponses(bins []models.Bin) []models.BinResponse {
	responses := make([]models.BinResponse, len(bins))
	for i, bin := range bins {
		responses[i] = bin.ToBinResponse()
	}
	return responses
}

func GetBins(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bins, err := database.ListBins(db)
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch bins")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"bins": binResponses(bins),
		})
	}
}

func GetBin(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		bin, err := database.GetBinByID(db, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Bin not found")
				return
			}
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch bin")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"bin": bin.ToBinResponse(),
		})
	}
}

func CreateBin(db *sqlx.DB, live LiveUpdates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBinRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Location = strings.TrimSpace(req.Location)
		req.BinType = strings.ToLower(strings.TrimSpace(req.BinType))
		if req.Location == "" || req.BinType == "" {
			utils.RespondError(w, http.StatusBadRequest, "Location and bin type are required")
			return
		}
		if !models.WasteTypes[req.BinType] {
			utils.RespondError(w, http.StatusBadRequest, "Unknown bin type: "+req.BinType)
			return
		}

		capacity := 100
		if req.Capacity != nil {
			if *req.Capacity <= 0 {
				utils.RespondError(w, http.StatusBadRequest, "Capacity must be positive")
				return
			}
			capacity = *req.Capacity
		}

		now := time.Now().Unix()
		bin := models.Bin{
			ID:        uuid.New().String(),
			Location:  req.Location,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Status:    models.DeriveBinStatus(0),
			Level:     0,
			BinType:   req.BinType,
			Capacity:  capacity,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := database.CreateBin(db, &bin); err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create bin")
			return
		}

		log.Printf("🗑️  Bin created: %s (%s, %s)", bin.ID, bin.Location, bin.BinType)
		pushBin(live, bin)

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "Bin created successfully",
			"binId":   bin.ID,
		})
	}
}

// UpdateBinFill takes a sensor or manual level report and runs the bin
// fill reward for it
func UpdateBinFill(svc *accounting.Service, live LiveUpdates, community CommunityNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req models.UpdateBinRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := svc.UpdateBinFill(r.Context(), accounting.BinFillInput{
			BinID:     id,
			Level:     req.Level,
			Status:    req.Status,
			Distance:  req.Distance,
			DeviceID:  req.DeviceID,
			Timestamp: req.Timestamp,
			UserID:    req.UserID,
		})
		if err != nil {
			respondAccountingError(w, "update bin", err)
			return
		}

		pushBin(live, result.Bin)
		reason := models.TxLabelBinFill
		if result.Community {
			reason = models.TxLabelCommunityReward
		}
		pushBalances(live, result.Credits, reason)

		if result.Community && len(result.Credits) > 0 && community != nil {
			community.NotifyCommunityReward(r.Context(), result.Bin.Location, result.CoinsAwarded)
		}

		failed := make([]string, 0, len(result.Failures))
		for _, f := range result.Failures {
			failed = append(failed, f.UserID)
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message":       "Bin updated successfully",
			"bin":           result.Bin.ToBinResponse(),
			"previousLevel": result.PreviousLevel,
			"levelIncrease": result.LevelIncrease,
			"coinsAwarded":  result.CoinsAwarded,
			"community":     result.Community,
			"usersCredited": len(result.Credits),
			"awardComplete": result.AwardComplete(),
			"failedUserIds": failed,
		})
	}
}

func EmptyBin(svc *accounting.Service, live LiveUpdates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bin, err := svc.EmptyBin(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondAccountingError(w, "empty bin", err)
			return
		}

		log.Printf("🧹 Bin emptied: %s (%s)", bin.ID, bin.Location)
		pushBin(live, *bin)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Bin emptied successfully",
			"bin":     bin.ToBinResponse(),
		})
	}
}

func GetBinsByStatus(db *sqlx.DB) http.HandlerFunc {
	return listBinsBy(db, "status", "Failed to fetch bins by status")
}

func GetBinsByType(db *sqlx.DB) http.HandlerFunc {
	return listBinsBy(db, "bin_type", "Failed to fetch bins by type")
}

func listBinsBy(db *sqlx.DB, column, failure string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := chi.URLParam(r, "value")
		if column == "bin_type" {
			value = strings.ToLower(value)
		}

		bins, err := database.ListBinsBy(db, column, value)
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, failure)
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"bins": binResponses(bins),
		})
	}
}

func GetNearbyBins(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, errLat := strconv.ParseFloat(chi.URLParam(r, "lat"), 64)
		lng, errLng := strconv.ParseFloat(chi.URLParam(r, "lng"), 64)
		radius, errRadius := strconv.ParseFloat(chi.URLParam(r, "radius"), 64)
		if errLat != nil || errLng != nil || errRadius != nil {
			utils.RespondError(w, http.StatusBadRequest, "Latitude, longitude and radius must be numbers")
			return
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 || radius < 0 {
			utils.RespondError(w, http.StatusBadRequest, "Coordinates or radius out of range")
			return
		}

		bins, err := database.NearbyBins(db, lat, lng, radius)
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch nearby bins")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"bins": bins,
		})
	}
}

func GetBinReadings(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		limit, err := utils.QueryInt(r, "limit", 50, 500)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		readings, err := database.GetBinReadings(db, id, limit)
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch readings")
			return
		}

		responses := make([]models.BinReadingResponse, len(readings))
		for i, reading := range readings {
			responses[i] = reading.ToBinReadingResponse()
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"readings": responses,
		})
	}
}
