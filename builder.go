package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Turbo-Dex/backend/internal/audit"
	"github.com/Turbo-Dex/backend/jwt"
	"github.com/Turbo-Dex/backend/password"
	"github.com/Turbo-Dex/backend/recovery"
	"github.com/Turbo-Dex/backend/refresh"
	"github.com/Turbo-Dex/backend/store"
)

// Store is a backend serving both user records and the refresh ledger.
type Store interface {
	store.UserStore
	store.RefreshTokenStore
}

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config

	users        store.UserStore
	refreshStore store.RefreshTokenStore

	logger    *zap.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore uses s for both user records and the refresh ledger.
func (b *Builder) WithStore(s Store) *Builder {
	b.users = s
	b.refreshStore = s
	return b
}

// WithUserStore sets the user credential store.
func (b *Builder) WithUserStore(s store.UserStore) *Builder {
	b.users = s
	return b
}

// WithRefreshStore sets the refresh ledger store.
func (b *Builder) WithRefreshStore(s store.RefreshTokenStore) *Builder {
	b.refreshStore = s
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the destination of audit events. Audit must also be enabled in Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the clock used for token timestamps and ledger expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	if enabled {
		b.config.Metrics.Enabled = true
	}
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.users == nil {
		return nil, errors.New("user store is required")
	}
	if b.refreshStore == nil {
		return nil, errors.New("refresh token store is required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hasher, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}

	codec, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Leeway:        cfg.JWT.Leeway,
		Issuer:        cfg.JWT.Issuer,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	codes, err := recovery.NewGenerator(hasher, cfg.Recovery.CodeLength)
	if err != nil {
		return nil, err
	}

	ledger, err := refresh.New(codec, b.refreshStore, refresh.Options{
		StoreTimeout: cfg.Store.Timeout,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		users:   b.users,
		hasher:  hasher,
		codec:   codec,
		codes:   codes,
		ledger:  ledger,
		metrics: NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		logger: logger.Named("auth"),
		now:    now,
	}
	engine.initFlowDeps(dummyHash)

	b.built = true
	return engine, nil
}
