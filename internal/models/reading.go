package models

import "time"

// BinReading is one sensor (or manual) fill-level report for a bin
type BinReading struct {
	ID       string   `json:"id" db:"id"`
	BinID    string   `json:"bin_id" db:"bin_id"`
	Level    int      `json:"level" db:"level"`
	Status   string   `json:"status" db:"status"`
	Distance *float64 `json:"distance,omitempty" db:"distance"`
	DeviceID *string  `json:"device_id,omitempty" db:"device_id"`
	UserID   *string  `json:"user_id,omitempty" db:"user_id"`
	ReadAt   int64    `json:"read_at" db:"read_at"` // Unix timestamp
}

// BinReadingResponse is what we send to the client
type BinReadingResponse struct {
	ID        string   `json:"id"`
	BinID     string   `json:"binId"`
	Level     int      `json:"level"`
	Status    string   `json:"status"`
	Distance  *float64 `json:"distance,omitempty"`
	DeviceID  *string  `json:"deviceId,omitempty"`
	ReadAtIso string   `json:"readAtIso"`
	ReadAt    string   `json:"readAt"` // formatted date
}

// ToBinReadingResponse converts a BinReading to BinReadingResponse
func (r *BinReading) ToBinReadingResponse() BinReadingResponse {
	t := time.Unix(r.ReadAt, 0).UTC()
	return BinReadingResponse{
		ID:        r.ID,
		BinID:     r.BinID,
		Level:     r.Level,
		Status:    r.Status,
		Distance:  r.Distance,
		DeviceID:  r.DeviceID,
		ReadAtIso: t.Format(time.RFC3339),
		ReadAt:    t.Format("Jan 02, 2006 15:04"),
	}
}
