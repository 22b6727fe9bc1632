package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Turbo-Dex/backend/internal/audit"
	"github.com/Turbo-Dex/backend/internal/flows"
	"github.com/Turbo-Dex/backend/jwt"
	"github.com/Turbo-Dex/backend/password"
	"github.com/Turbo-Dex/backend/recovery"
	"github.com/Turbo-Dex/backend/refresh"
	"github.com/Turbo-Dex/backend/store"
)

// Engine is the session service. It is safe for concurrent use after Build and
// takes no locks: atomicity of rotation comes from the refresh store.
type Engine struct {
	config  Config
	users   store.UserStore
	hasher  *password.Argon2
	codec   *jwt.Manager
	codes   *recovery.Generator
	ledger  *refresh.Ledger
	flows   flows.Service
	audit   *audit.Dispatcher
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
	closed  atomic.Bool
}

// Close describes the close operation and its observable behavior.
//
// Close flushes buffered audit events. Operations on a closed engine return
// ErrEngineNotReady. Close is idempotent.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closed.Store(true)
	e.audit.Close()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped returns how many audit events were discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) observe(err error) error {
	if err != nil && errors.Is(err, ErrStoreUnavailable) {
		e.metricInc(MetricStoreUnavailable)
	}
	return err
}

// Signup creates an account and returns its profile plus the plaintext recovery
// code, which is shown once and stored only as a hash.
//
// Errors: ErrInvalidInput, ErrUsernameTaken, ErrStoreUnavailable.
func (e *Engine) Signup(ctx context.Context, username, password, displayName string) (Profile, string, error) {
	if err := e.ready(); err != nil {
		return Profile{}, "", err
	}
	res, err := e.flows.Signup(ctx, username, password, displayName)
	if err != nil {
		return Profile{}, "", e.observe(err)
	}
	return profileFrom(res.User), res.RecoveryCode, nil
}

// Login verifies credentials and issues a token pair.
//
// Errors: ErrInvalidInput, ErrBadCredentials (unknown user and wrong password alike),
// ErrStoreUnavailable.
func (e *Engine) Login(ctx context.Context, username, password string) (TokenPair, Profile, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, Profile{}, err
	}
	res, err := e.flows.Login(ctx, username, password)
	if err != nil {
		return TokenPair{}, Profile{}, e.observe(err)
	}
	return pairFrom(res.Tokens), profileFrom(res.User), nil
}

// Refresh rotates a refresh token into a new pair. The presented token is revoked.
//
// Errors: ErrInvalidRefresh, ErrReuseDetected (the user's whole chain is revoked),
// ErrStoreUnavailable. Both auth failures satisfy IsAuthFailure.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}
	pair, err := e.flows.Refresh(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, e.observe(err)
	}
	return pairFrom(pair), nil
}

// Logout revokes refreshToken. It always succeeds from the caller's point of view;
// invalid or already revoked tokens are ignored and store failures are logged.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if err := e.ready(); err != nil {
		return nil
	}
	_ = e.observe(e.flows.Logout(ctx, refreshToken))
	return nil
}

// ResetPassword replaces the password of username after checking its recovery code.
//
// Errors: ErrInvalidInput, ErrUserNotFound, ErrBadRecoveryCode, ErrStoreUnavailable.
func (e *Engine) ResetPassword(ctx context.Context, username, recoveryCode, newPassword string) error {
	_, err := e.ResetPasswordWithResult(ctx, username, recoveryCode, newPassword)
	return err
}

// ResetPasswordWithResult is ResetPassword reporting the optional side effects
// enabled by Config.Reset.
func (e *Engine) ResetPasswordWithResult(ctx context.Context, username, recoveryCode, newPassword string) (ResetResult, error) {
	if err := e.ready(); err != nil {
		return ResetResult{}, err
	}
	res, err := e.flows.Reset(ctx, username, recoveryCode, newPassword)
	out := ResetResult{RecoveryCode: res.RecoveryCode, SessionsRevoked: res.SessionsRevoked}
	if err != nil {
		return out, e.observe(err)
	}
	return out, nil
}

// Authenticate verifies an access token and returns its user ID. It does no store I/O.
//
// Errors: ErrTokenMissing, ErrTokenExpired, ErrTokenInvalid.
func (e *Engine) Authenticate(ctx context.Context, bearerToken string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	return e.flows.Authenticate(ctx, bearerToken)
}
