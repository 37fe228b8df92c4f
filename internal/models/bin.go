package models

import "time"

// Derived fill status labels
const (
	BinStatusNotFull    = "Not Full"
	BinStatusHalfFull   = "Half Full"
	BinStatusAlmostFull = "Almost Full"
	BinStatusFull       = "Full"
)

// Waste types accepted by bins and deposits
var WasteTypes = map[string]bool{
	"plastic": true,
	"paper":   true,
	"glass":   true,
	"metal":   true,
	"organic": true,
}

type Bin struct {
	ID          string   `json:"id" db:"id"`
	Location    string   `json:"location" db:"location"`
	Latitude    *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64 `json:"longitude,omitempty" db:"longitude"`
	Status      string   `json:"status" db:"status"`
	Level       int      `json:"level" db:"level"`
	BinType     string   `json:"bin_type" db:"bin_type"`
	Capacity    int      `json:"capacity" db:"capacity"`
	LastEmptied *int64   `json:"last_emptied,omitempty" db:"last_emptied"` // Unix timestamp
	CreatedAt   int64    `json:"created_at" db:"created_at"`               // Unix timestamp
	UpdatedAt   int64    `json:"updated_at" db:"updated_at"`               // Unix timestamp
}

// BinResponse is what we send to the client with ISO timestamps
type BinResponse struct {
	ID             string   `json:"id"`
	Location       string   `json:"location"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Status         string   `json:"status"`
	Level          int      `json:"level"`
	BinType        string   `json:"bin_type"`
	Capacity       int      `json:"capacity"`
	LastEmptiedIso *string  `json:"last_emptied,omitempty"`
	UpdatedAtIso   string   `json:"updated_at"`
	Distance       *float64 `json:"distance,omitempty"` // km, nearby queries only
}

// CreateBinRequest is the request body for POST /api/bins
type CreateBinRequest struct {
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	BinType   string   `json:"binType"`
	Capacity  *int     `json:"capacity,omitempty"`
}

// UpdateBinRequest is the sensor/deposit update body for PUT /api/bins/:id
type UpdateBinRequest struct {
	Level     *int     `json:"level,omitempty"`
	Status    *string  `json:"status,omitempty"`
	Distance  *float64 `json:"distance,omitempty"`
	DeviceID  *string  `json:"deviceId,omitempty"`
	Timestamp *int64   `json:"timestamp,omitempty"`
	UserID    *string  `json:"userId,omitempty"`
}

// ClampLevel keeps a fill level inside [0,100]
func ClampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

// DeriveBinStatus maps a fill level onto its status label
func DeriveBinStatus(level int) string {
	switch {
	case level >= 90:
		return BinStatusFull
	case level >= 70:
		return BinStatusAlmostFull
	case level >= 30:
		return BinStatusHalfFull
	default:
		return BinStatusNotFull
	}
}

// ToBinResponse converts a Bin to BinResponse
func (b *Bin) ToBinResponse() BinResponse {
	resp := BinResponse{
		ID:           b.ID,
		Location:     b.Location,
		Latitude:     b.Latitude,
		Longitude:    b.Longitude,
		Status:       b.Status,
		Level:        b.Level,
		BinType:      b.BinType,
		Capacity:     b.Capacity,
		UpdatedAtIso: time.Unix(b.UpdatedAt, 0).UTC().Format(time.RFC3339),
	}

	if b.LastEmptied != nil {
		iso := time.Unix(*b.LastEmptied, 0).UTC().Format(time.RFC3339)
		resp.LastEmptiedIso = &iso
	}

	return resp
}
