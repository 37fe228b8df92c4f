package main

import (
	"fmt"
	"log"
	"os"

	"smartwaste-backend/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
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

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed successfully!")

	// Every balance must equal the sum of its ledger entries
	mismatches, err := database.AuditBalances(db)
	if err != nil {
		log.Fatalf("Failed to audit balances: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("LEDGER AUDIT")
	fmt.Println("============================================================")
	if len(mismatches) == 0 {
		fmt.Println("All balances match their transaction history")
	}
	for _, m := range mismatches {
		fmt.Printf("%-36s %-30s balance=%-8d ledger=%-8d diff=%d\n",
			m.UserID, m.Email, m.CoinBalance, m.LedgerSum, m.CoinBalance-m.LedgerSum)
	}
	fmt.Println("============================================================")

	if len(mismatches) > 0 {
		os.Exit(1)
	}
}
