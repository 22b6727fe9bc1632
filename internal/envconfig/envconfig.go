// Package envconfig loads the server settings from the process environment.
package envconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	auth "github.com/Turbo-Dex/backend"
	"github.com/Turbo-Dex/backend/jwt"
)

// Development defaults. They are refused outside dev.
const (
	DevAccessSecret  = "dev_secret"
	DevRefreshSecret = "dev_refresh"
)

// Store backends selectable with AUTH_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// ErrDevSecret is returned when a production-like environment runs with a default secret.
var ErrDevSecret = errors.New("envconfig: default JWT secret outside dev")

// Settings mirrors the environment variables one to one.
type Settings struct {
	AppEnv           string        `mapstructure:"APP_ENV"`
	HTTPAddr         string        `mapstructure:"AUTH_HTTP_ADDR"`
	Store            string        `mapstructure:"AUTH_STORE"`
	StoreTimeout     time.Duration `mapstructure:"AUTH_STORE_TIMEOUT"`
	AuditEnabled     bool          `mapstructure:"AUTH_AUDIT_ENABLED"`
	MetricsEnabled   bool          `mapstructure:"AUTH_METRICS_ENABLED"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	JWTRefreshSecret string        `mapstructure:"JWT_REFRESH_SECRET"`
	JWTAccessMin     string        `mapstructure:"JWT_ACCESS_MIN"`
	JWTRefreshDays   string        `mapstructure:"JWT_REFRESH_DAYS"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
}

var keys = []string{
	"APP_ENV",
	"AUTH_HTTP_ADDR",
	"AUTH_STORE",
	"AUTH_STORE_TIMEOUT",
	"AUTH_AUDIT_ENABLED",
	"AUTH_METRICS_ENABLED",
	"JWT_SECRET",
	"JWT_REFRESH_SECRET",
	"JWT_ACCESS_MIN",
	"JWT_REFRESH_DAYS",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"DATABASE_URL",
}

// Load reads the environment, applies defaults and validates the result.
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	s.AppEnv = strings.ToLower(strings.TrimSpace(s.AppEnv))
	s.Store = strings.ToLower(strings.TrimSpace(s.Store))

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("AUTH_HTTP_ADDR", ":8080")
	v.SetDefault("AUTH_STORE", StoreMemory)
	v.SetDefault("AUTH_STORE_TIMEOUT", "3s")
	v.SetDefault("AUTH_AUDIT_ENABLED", false)
	v.SetDefault("AUTH_METRICS_ENABLED", true)

	v.SetDefault("JWT_SECRET", DevAccessSecret)
	v.SetDefault("JWT_REFRESH_SECRET", DevRefreshSecret)
	v.SetDefault("JWT_ACCESS_MIN", "15")
	v.SetDefault("JWT_REFRESH_DAYS", "14")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DATABASE_URL", "")
}

// IsDev reports whether the settings belong to a development environment.
func (s *Settings) IsDev() bool {
	switch s.AppEnv {
	case "", "dev", "development", "local", "test":
		return true
	}
	return false
}

// Validate checks the settings that Load cannot default.
func (s *Settings) Validate() error {
	if !s.IsDev() && (s.JWTSecret == DevAccessSecret || s.JWTRefreshSecret == DevRefreshSecret) {
		return ErrDevSecret
	}
	switch s.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if s.DatabaseURL == "" {
			return errors.New("envconfig: DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("envconfig: unknown AUTH_STORE %q", s.Store)
	}
	if s.StoreTimeout <= 0 {
		return errors.New("envconfig: AUTH_STORE_TIMEOUT must be > 0")
	}
	return nil
}

// EngineConfig converts the settings into an engine configuration.
func (s *Settings) EngineConfig() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(s.JWTSecret)
	cfg.JWT.RefreshSecret = []byte(s.JWTRefreshSecret)
	cfg.JWT.AccessTTL = jwt.AccessTTLFromMinutes(s.JWTAccessMin)
	cfg.JWT.RefreshTTL = jwt.RefreshTTLFromDays(s.JWTRefreshDays)
	cfg.Store.Timeout = s.StoreTimeout
	cfg.Audit.Enabled = s.AuditEnabled
	cfg.Metrics.Enabled = s.MetricsEnabled
	return cfg
}
