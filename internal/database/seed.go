package database

import (
	"fmt"
	"log"
	"time"

	"smartwaste-backend/internal/models"
	"smartwaste-backend/internal/scancodes"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const (
	DemoUserEmail    = "demo@smartwaste.local"
	demoUserPassword = "demo1234"
)

type seedBin struct {
	location  string
	latitude  float64
	longitude float64
	binType   string
	level     int
}

var seedBins = []seedBin{
	{"Central Park North Gate", 40.7968, -73.9496, "plastic", 35},
	{"Main Street Library", 40.7532, -73.9822, "paper", 72},
	{"Riverside Market", 40.8007, -73.9712, "glass", 12},
	{"City Hall Plaza", 40.7127, -74.0059, "metal", 91},
	{"Community Garden", 40.7265, -73.9815, "organic", 48},
	{"Union Square Station", 40.7359, -73.9911, "plastic", 64},
	{"Harbor Front Walk", 40.7033, -74.0170, "paper", 20},
	{"University Campus East", 40.8075, -73.9626, "glass", 83},
}

func SeedBins(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM bins"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Bins already seeded, skipping...")
		return nil
	}

	log.Printf("🌱 Seeding %d bins...", len(seedBins))

	now := time.Now().Unix()
	for _, b := range seedBins {
		_, err := db.Exec(`
			INSERT INTO bins (id, location, latitude, longitude, status, level, bin_type, capacity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 100, $8, $8)
		`, uuid.New().String(), b.location, b.latitude, b.longitude, models.DeriveBinStatus(b.level), b.level, b.binType, now)
		if err != nil {
			return fmt.Errorf("failed to seed bin %q: %w", b.location, err)
		}
	}

	log.Printf("✓ Successfully seeded %d bins", len(seedBins))
	return nil
}

// SeedDemoUser creates a login for local testing when the users table is empty
func SeedDemoUser(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	user := models.User{
		ID:        uuid.New().String(),
		FirstName: "Demo",
		LastName:  "Recycler",
		Email:     DemoUserEmail,
		Password:  string(hash),
		ScanToken: scancodes.NewUserToken(now),
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
	}

	_, err = db.NamedExec(`
		INSERT INTO users (id, first_name, last_name, email, password, coin_balance, scan_token, created_at, updated_at)
		VALUES (:id, :first_name, :last_name, :email, :password, 0, :scan_token, :created_at, :updated_at)
	`, user)
	if err != nil {
		return err
	}

	log.Println("✓ Successfully seeded demo user")
	log.Printf("  📧 Demo: %s / %s", DemoUserEmail, demoUserPassword)
	return nil
}
