package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 Database URL length: %d characters", len(dbURL))
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT sqlx.Connect()")
		log.Printf("   Error type: %T", err)
		log.Printf("   Error message: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error message: %v", err)
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

// Migrations are applied in order on every start and must stay idempotent
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		coin_balance INT NOT NULL DEFAULT 0 CHECK (coin_balance >= 0),
		scan_token TEXT NOT NULL UNIQUE,
		reset_token_hash TEXT,
		reset_token_expires BIGINT,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,

	`CREATE TABLE IF NOT EXISTS bins (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		status TEXT NOT NULL,
		level INT NOT NULL DEFAULT 0 CHECK (level >= 0 AND level <= 100),
		bin_type TEXT NOT NULL CHECK (bin_type IN ('plastic', 'paper', 'glass', 'metal', 'organic')),
		capacity INT NOT NULL DEFAULT 100,
		last_emptied BIGINT,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,

	// Append-only coin ledger. Redemptions carry a negative amount and no bin.
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		bin_id TEXT REFERENCES bins(id) ON DELETE SET NULL,
		amount INT NOT NULL,
		waste_type TEXT,
		weight DOUBLE PRECISION,
		description TEXT NOT NULL,
		reward_id TEXT,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,

	`CREATE TABLE IF NOT EXISTS bin_readings (
		id TEXT PRIMARY KEY,
		bin_id TEXT NOT NULL REFERENCES bins(id) ON DELETE CASCADE,
		level INT NOT NULL,
		status TEXT NOT NULL,
		distance DOUBLE PRECISION,
		device_id TEXT,
		user_id TEXT,
		read_at BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS fcm_tokens (
		id SERIAL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		device_type TEXT NOT NULL CHECK (device_type IN ('ios', 'android', 'web')),
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	`CREATE INDEX IF NOT EXISTS idx_users_coin_balance ON users(coin_balance DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bins_status ON bins(status)`,
	`CREATE INDEX IF NOT EXISTS idx_bins_bin_type ON bins(bin_type)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bin_readings_bin_read ON bin_readings(bin_id, read_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
}

func Migrate(db *sqlx.DB) error {
	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
