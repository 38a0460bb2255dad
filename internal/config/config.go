package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port        string `env:"PORT,default=8080"`
	Env         string `env:"ENV,default=development"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`

	JWTAccessExpiry time.Duration `env:"JWT_ACCESS_EXPIRY,default=15m"`

	MetricsAddr   string        `env:"METRICS_ADDR,default=:9090"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL,default=1h"`

	Family FamilyConfig
	Audit  AuditConfig
	SMTP   SMTPConfig
}

// FamilyConfig carries the tunables of the invitation protocol and the game
// lock arbiter. Durations are expressed in whole minutes because the store
// procedures take minute counts.
type FamilyConfig struct {
	InviteExpiryMinutes int    `env:"FAMILY_INVITE_EXPIRY_MINUTES,default=4"`
	MaxFailedAttempts   int    `env:"MAX_FAILED_ATTEMPTS,default=3"`
	LockoutMinutes      int    `env:"LOCKOUT_TIME_MINUTES,default=15"`
	GameLockMinutes     int    `env:"GAME_LOCK_MINUTES,default=15"`
	FrontendURL         string `env:"FRONTEND_URL,default=http://localhost:3000"`
}

type AuditConfig struct {
	Buffer      int    `env:"AUDIT_BUFFER,default=256"`
	NATSURL     string `env:"AUDIT_NATS_URL"`
	NATSSubject string `env:"AUDIT_NATS_SUBJECT,default=family.audit"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT,default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// DefaultFamilyConfig returns the documented defaults, used by tests and by
// callers that construct services without the environment.
func DefaultFamilyConfig() FamilyConfig {
	return FamilyConfig{
		InviteExpiryMinutes: 4,
		MaxFailedAttempts:   3,
		LockoutMinutes:      15,
		GameLockMinutes:     15,
		FrontendURL:         "http://localhost:3000",
	}
}

func (f FamilyConfig) InviteExpiry() time.Duration {
	return time.Duration(f.InviteExpiryMinutes) * time.Minute
}

func (f FamilyConfig) Validate() error {
	var errs []error
	if f.InviteExpiryMinutes <= 0 {
		errs = append(errs, fmt.Errorf("FAMILY_INVITE_EXPIRY_MINUTES must be positive, got %d", f.InviteExpiryMinutes))
	}
	if f.MaxFailedAttempts <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FAILED_ATTEMPTS must be positive, got %d", f.MaxFailedAttempts))
	}
	if f.LockoutMinutes <= 0 {
		errs = append(errs, fmt.Errorf("LOCKOUT_TIME_MINUTES must be positive, got %d", f.LockoutMinutes))
	}
	if f.GameLockMinutes <= 0 {
		errs = append(errs, fmt.Errorf("GAME_LOCK_MINUTES must be positive, got %d", f.GameLockMinutes))
	}
	if f.FrontendURL == "" {
		errs = append(errs, errors.New("FRONTEND_URL must not be empty"))
	}
	return errors.Join(errs...)
}

func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Family.Validate(); err != nil {
		return nil, err
	}
	if cfg.Audit.Buffer <= 0 {
		cfg.Audit.Buffer = 256
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
