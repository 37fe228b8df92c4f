// Package config reads server settings from the environment, loading a
// .env file first when one is present.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	SeedData    bool

	JWTSecret string
	JWTTTL    time.Duration

	Email EmailConfig

	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	ScanRatePerSecond float64
	ScanBurst         int

	AllowedOrigins []string
}

type EmailConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Configured reports whether SMTP credentials are present
func (e EmailConfig) Configured() bool {
	return e.User != "" && e.Pass != ""
}

// Load reads .env (if any) and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:        withDefault(getenv("PORT"), "8080"),
		DatabaseURL: getenv("DATABASE_URL"),
		JWTSecret:   getenv("APP_JWT_SECRET"),
		Email: EmailConfig{
			Host: withDefault(getenv("EMAIL_HOST"), "smtp.gmail.com"),
			User: getenv("EMAIL_USER"),
			Pass: getenv("EMAIL_PASS"),
			From: getenv("EMAIL_FROM"),
		},
		FirebaseCredentialsBase64: getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   getenv("FIREBASE_CREDENTIALS_FILE"),
	}

	var err error
	if cfg.SeedData, err = parseBool(getenv, "SEED_DATA", true); err != nil {
		return nil, err
	}

	ttl, err := parseInt(getenv, "JWT_TTL_HOURS", 24)
	if err != nil {
		return nil, err
	}
	cfg.JWTTTL = time.Duration(ttl) * time.Hour

	if cfg.Email.Port, err = parseInt(getenv, "EMAIL_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.ScanBurst, err = parseInt(getenv, "SCAN_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.ScanRatePerSecond, err = parseFloat(getenv, "SCAN_RATE_PER_SECOND", 2); err != nil {
		return nil, err
	}

	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.User
	}

	for _, origin := range strings.Split(withDefault(getenv("CORS_ALLOWED_ORIGINS"), "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("APP_JWT_SECRET environment variable is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive")
	}
	if c.ScanRatePerSecond <= 0 || c.ScanBurst <= 0 {
		return fmt.Errorf("SCAN_RATE_PER_SECOND and SCAN_BURST must be positive")
	}
	return nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseInt(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(getenv func(string) string, key string, def float64) (float64, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseBool(getenv func(string) string, key string, def bool) (bool, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
