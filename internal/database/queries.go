package database

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"smartwaste-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

const (
	userColumns = `id, first_name, last_name, email, password, coin_balance, scan_token,
		reset_token_hash, reset_token_expires, created_at, updated_at`
	binColumns = `id, location, latitude, longitude, status, level, bin_type, capacity,
		last_emptied, created_at, updated_at`
)

// pqUniqueViolation is the postgres SQLSTATE for unique_violation
const pqUniqueViolation = "23505"

func getOne(db sqlx.Queryer, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.Get(db, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// GetUserByID retrieves a user by id
func GetUserByID(db *sqlx.DB, id string) (*models.User, error) {
	var user models.User
	if err := getOne(db, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address
func GetUserByEmail(db *sqlx.DB, email string) (*models.User, error) {
	var user models.User
	if err := getOne(db, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a new user. A taken email yields ErrDuplicateEmail.
func CreateUser(db *sqlx.DB, user *models.User) error {
	_, err := db.NamedExec(`
		INSERT INTO users (id, first_name, last_name, email, password, coin_balance, scan_token, created_at, updated_at)
		VALUES (:id, :first_name, :last_name, :email, :password, 0, :scan_token, :created_at, :updated_at)
	`, user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// SetResetToken stores the hash of a password reset token
func SetResetToken(db *sqlx.DB, userID, tokenHash string, expires int64) error {
	_, err := db.Exec(`
		UPDATE users SET reset_token_hash = $1, reset_token_expires = $2
		WHERE id = $3
	`, tokenHash, expires, userID)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// ResetPassword replaces the password of the user holding an unexpired
// reset token and clears the token. It returns ErrNotFound when no user
// matches.
func ResetPassword(db *sqlx.DB, tokenHash, passwordHash string, now int64) error {
	result, err := db.Exec(`
		UPDATE users
		SET password = $1, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = $2
		WHERE reset_token_hash = $3 AND reset_token_expires > $2
	`, passwordHash, now, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLeaderboard returns the users with the highest balances
func GetLeaderboard(db *sqlx.DB, limit int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	err := db.Select(&entries, `
		SELECT id, first_name, last_name, coin_balance,
		       RANK() OVER (ORDER BY coin_balance DESC) AS rank
		FROM users
		ORDER BY coin_balance DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

// GetUserTransactions lists a user's ledger entries newest first, joined
// with the bin they were earned at when there is one
func GetUserTransactions(db *sqlx.DB, userID string, limit, offset int) ([]models.TransactionView, error) {
	txns := []models.TransactionView{}
	err := db.Select(&txns, `
		SELECT t.id, t.user_id, t.bin_id, t.amount, t.waste_type, t.weight,
		       t.description, t.reward_id, t.created_at,
		       b.location AS bin_location, b.bin_type
		FROM transactions t
		LEFT JOIN bins b ON b.id = t.bin_id
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return txns, nil
}

// ListBins returns every bin ordered by location
func ListBins(db *sqlx.DB) ([]models.Bin, error) {
	bins := []models.Bin{}
	if err := db.Select(&bins, `SELECT `+binColumns+` FROM bins ORDER BY location ASC`); err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	return bins, nil
}

// ListBinsBy filters bins on status or bin_type
func ListBinsBy(db *sqlx.DB, column, value string) ([]models.Bin, error) {
	if column != "status" && column != "bin_type" {
		return nil, fmt.Errorf("unsupported bin filter %q", column)
	}
	bins := []models.Bin{}
	err := db.Select(&bins, `SELECT `+binColumns+` FROM bins WHERE `+column+` = $1 ORDER BY location ASC`, value)
	if err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	return bins, nil
}

// GetBinByID retrieves a single bin
func GetBinByID(db *sqlx.DB, id string) (*models.Bin, error) {
	var bin models.Bin
	if err := getOne(db, &bin, `SELECT `+binColumns+` FROM bins WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get bin: %w", err)
	}
	return &bin, nil
}

// CreateBin inserts a new, empty bin
func CreateBin(db *sqlx.DB, bin *models.Bin) error {
	_, err := db.NamedExec(`
		INSERT INTO bins (id, location, latitude, longitude, status, level, bin_type, capacity, created_at, updated_at)
		VALUES (:id, :location, :latitude, :longitude, :status, :level, :bin_type, :capacity, :created_at, :updated_at)
	`, bin)
	if err != nil {
		return fmt.Errorf("failed to create bin: %w", err)
	}
	return nil
}

// NearbyBins returns bins with coordinates within radiusKm of a point,
// nearest first
func NearbyBins(db *sqlx.DB, lat, lng, radiusKm float64) ([]models.BinResponse, error) {
	var bins []models.Bin
	err := db.Select(&bins, `SELECT `+binColumns+` FROM bins WHERE latitude IS NOT NULL AND longitude IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}

	nearby := []models.BinResponse{}
	for _, bin := range bins {
		d := HaversineKm(lat, lng, *bin.Latitude, *bin.Longitude)
		if d > radiusKm {
			continue
		}
		resp := bin.ToBinResponse()
		dist := math.Round(d*100) / 100
		resp.Distance = &dist
		nearby = append(nearby, resp)
	}
	sort.SliceStable(nearby, func(i, j int) bool { return *nearby[i].Distance < *nearby[j].Distance })
	return nearby, nil
}

// HaversineKm is the great-circle distance between two points in kilometres
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// GetBinReadings returns the most recent readings for a bin
func GetBinReadings(db *sqlx.DB, binID string, limit int) ([]models.BinReading, error) {
	readings := []models.BinReading{}
	err := db.Select(&readings, `
		SELECT id, bin_id, level, status, distance, device_id, user_id, read_at
		FROM bin_readings
		WHERE bin_id = $1
		ORDER BY read_at DESC
		LIMIT $2
	`, binID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bin readings: %w", err)
	}
	return readings, nil
}

// UpsertFCMToken registers a device token for a user. A token moves to the
// latest user that registers it.
func UpsertFCMToken(db *sqlx.DB, userID, token, deviceType string, now int64) error {
	_, err := db.Exec(`
		INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, device_type = EXCLUDED.device_type, updated_at = EXCLUDED.updated_at
	`, userID, token, deviceType, now)
	if err != nil {
		return fmt.Errorf("failed to save fcm token: %w", err)
	}
	return nil
}

// GetFCMTokens returns the device tokens registered for a user
func GetFCMTokens(db *sqlx.DB, userID string) ([]string, error) {
	tokens := []string{}
	if err := db.Select(&tokens, `SELECT token FROM fcm_tokens WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to get fcm tokens: %w", err)
	}
	return tokens, nil
}

// GetAllFCMTokens returns every registered device token
func GetAllFCMTokens(db *sqlx.DB) ([]string, error) {
	tokens := []string{}
	if err := db.Select(&tokens, `SELECT token FROM fcm_tokens`); err != nil {
		return nil, fmt.Errorf("failed to get fcm tokens: %w", err)
	}
	return tokens, nil
}

// BalanceMismatch is a user whose stored balance disagrees with the sum of
// their ledger entries
type BalanceMismatch struct {
	UserID      string `db:"id"`
	Email       string `db:"email"`
	CoinBalance int    `db:"coin_balance"`
	LedgerSum   int    `db:"ledger_sum"`
}

// AuditBalances compares every balance with its transaction log
func AuditBalances(db *sqlx.DB) ([]BalanceMismatch, error) {
	mismatches := []BalanceMismatch{}
	err := db.Select(&mismatches, `
		SELECT u.id, u.email, u.coin_balance, COALESCE(SUM(t.amount), 0) AS ledger_sum
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
		GROUP BY u.id, u.email, u.coin_balance
		HAVING u.coin_balance <> COALESCE(SUM(t.amount), 0)
		ORDER BY u.email
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to audit balances: %w", err)
	}
	return mismatches, nil
}
