package main

import (
	"log"
	"os"

	"smartwaste-backend/internal/database"

	"github.com/joho/godotenv"
)

// Seeds the demo bins and the demo login into an existing database without
// starting the server
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("🔌 Connected to database")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := database.SeedBins(db); err != nil {
		log.Fatalf("Failed to seed bins: %v", err)
	}
	if err := database.SeedDemoUser(db); err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}

	log.Println("✅ Seeding complete")
}
