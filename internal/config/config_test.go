package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"DATABASE_URL": "postgres://localhost/family",
		"JWT_SECRET":   "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultFamilyConfig(), cfg.Family)
	assert.Equal(t, 4*time.Minute, cfg.Family.InviteExpiry())
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, "family.audit", cfg.Audit.NATSSubject)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"DATABASE_URL":                 "postgres://localhost/family",
		"JWT_SECRET":                   "secret",
		"ENV":                          "production",
		"FAMILY_INVITE_EXPIRY_MINUTES": "10",
		"MAX_FAILED_ATTEMPTS":          "5",
		"LOCKOUT_TIME_MINUTES":         "30",
		"GAME_LOCK_MINUTES":            "60",
		"FRONTEND_URL":                 "https://family.example.com",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 10, cfg.Family.InviteExpiryMinutes)
	assert.Equal(t, 5, cfg.Family.MaxFailedAttempts)
	assert.Equal(t, 30, cfg.Family.LockoutMinutes)
	assert.Equal(t, 60, cfg.Family.GameLockMinutes)
	assert.Equal(t, "https://family.example.com", cfg.Family.FrontendURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositive(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"DATABASE_URL":        "postgres://localhost/family",
		"JWT_SECRET":          "secret",
		"MAX_FAILED_ATTEMPTS": "0",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_FAILED_ATTEMPTS")
}
