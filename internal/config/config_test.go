package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DATABASE_URL":   "postgres://localhost/smartwaste",
		"APP_JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.SeedData)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.Host)
	assert.Equal(t, 587, cfg.Email.Port)
	assert.False(t, cfg.Email.Configured())
	assert.Equal(t, 2.0, cfg.ScanRatePerSecond)
	assert.Equal(t, 5, cfg.ScanBurst)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":                 "9000",
		"DATABASE_URL":         "postgres://db/smartwaste",
		"APP_JWT_SECRET":       "s3cret",
		"JWT_TTL_HOURS":        "2",
		"SEED_DATA":            "false",
		"EMAIL_USER":           "bot@example.com",
		"EMAIL_PASS":           "pw",
		"SCAN_RATE_PER_SECOND": "0.5",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.SeedData)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.Email.Configured())
	assert.Equal(t, "bot@example.com", cfg.Email.From)
	assert.Equal(t, 0.5, cfg.ScanRatePerSecond)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromEnvErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing database url": {"APP_JWT_SECRET": "x"},
		"missing jwt secret":   {"DATABASE_URL": "postgres://x"},
		"bad ttl":              {"DATABASE_URL": "postgres://x", "APP_JWT_SECRET": "x", "JWT_TTL_HOURS": "day"},
		"bad seed flag":        {"DATABASE_URL": "postgres://x", "APP_JWT_SECRET": "x", "SEED_DATA": "maybe"},
		"zero burst":           {"DATABASE_URL": "postgres://x", "APP_JWT_SECRET": "x", "SCAN_BURST": "0"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(values))
			assert.Error(t, err)
		})
	}
}
