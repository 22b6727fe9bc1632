package auth

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/Turbo-Dex/backend/jwt"
	"github.com/Turbo-Dex/backend/password"
	"github.com/Turbo-Dex/backend/recovery"
	"github.com/Turbo-Dex/backend/refresh"
)

// Config holds every engine setting. Build validates it once; the engine keeps a copy.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Recovery RecoveryConfig
	Store    StoreConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Reset    ResetConfig
}

// JWTConfig configures the HS256 token codec. The two secrets must differ and are
// never logged.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	Issuer        string
}

// PasswordConfig holds Argon2id parameters for new hashes. Memory is in KiB.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// RecoveryConfig sets the recovery code length. Zero means recovery.DefaultLength.
type RecoveryConfig struct {
	CodeLength int
}

// StoreConfig bounds every store call.
type StoreConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// ResetConfig decides what a password reset does besides replacing the hash.
type ResetConfig struct {
	// RevokeSessions revokes every refresh token of the user.
	RevokeSessions bool
	// RotateRecoveryCode replaces the recovery code and returns the new one.
	RotateRecoveryCode bool
}

// DefaultConfig returns production defaults. JWT secrets are left empty and must be set.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:  jwt.DefaultAccessTTL,
			RefreshTTL: jwt.DefaultRefreshTTL,
			Leeway:     jwt.DefaultLeeway,
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			UpgradeOnLogin: true,
		},
		Recovery: RecoveryConfig{
			CodeLength: recovery.DefaultLength,
		},
		Store: StoreConfig{
			Timeout: refresh.DefaultStoreTimeout,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func (c Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = bytes.Clone(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = bytes.Clone(cfg.JWT.RefreshSecret)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT RefreshSecret is required")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Password
	if err := password.ValidateConfig(c.passwordConfig()); err != nil {
		return fmt.Errorf("Password: %w", err)
	}

	// Recovery
	if c.Recovery.CodeLength != 0 && c.Recovery.CodeLength < recovery.MinLength {
		return fmt.Errorf("Recovery CodeLength must be >= %d", recovery.MinLength)
	}

	// Store
	if c.Store.Timeout <= 0 {
		return errors.New("Store Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
