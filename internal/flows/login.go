package flows

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Turbo-Dex/backend/internal/audit"
	"github.com/Turbo-Dex/backend/refresh"
	"github.com/Turbo-Dex/backend/store"
)

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	Success        int
	Failure        int
	PasswordRehash int
}

// LoginErrors carries host sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady error
	InvalidInput   error
	BadCredentials error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Users        store.UserStore
	StoreContext StoreContext

	VerifyPassword func(password, hash string) bool
	// DummyHash is verified against when the user does not exist so both failure
	// paths spend the same hashing time.
	DummyHash string

	PasswordUpgradeOnLogin bool
	PasswordNeedsUpgrade   func(hash string) bool
	HashPassword           func(string) (string, error)

	IssueTokens func(ctx context.Context, userID string) (refresh.Pair, error)

	Observer Observer
	Metrics  LoginMetrics
	Errors   LoginErrors
}

// LoginResult is the authenticated user plus the issued pair.
type LoginResult struct {
	User   store.UserRecord
	Tokens refresh.Pair
}

// RunLogin checks credentials and issues a token pair. Unknown user and wrong
// password are indistinguishable to the caller.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (LoginResult, error) {
	if deps.Users == nil || deps.VerifyPassword == nil || deps.IssueTokens == nil {
		return LoginResult{}, deps.Errors.EngineNotReady
	}
	obs := deps.Observer.withDefaults()

	if strings.TrimSpace(username) == "" || password == "" {
		return LoginResult{}, deps.Errors.InvalidInput
	}

	user, err := findUser(ctx, deps.Users, deps.StoreContext, store.UsernameKey(username))
	switch {
	case errors.Is(err, store.ErrNotFound):
		if deps.DummyHash != "" {
			_ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return LoginResult{}, loginFailed(ctx, obs, deps, "", "unknown_user")
	case err != nil:
		return LoginResult{}, store.Unavailable(err)
	}

	if !deps.VerifyPassword(password, user.PasswordHash) {
		return LoginResult{}, loginFailed(ctx, obs, deps, user.ID, "wrong_password")
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil &&
		deps.PasswordNeedsUpgrade(user.PasswordHash) {
		upgradePassword(ctx, obs, deps, &user, password)
	}

	pair, err := deps.IssueTokens(ctx, user.ID)
	if err != nil {
		obs.Log.Error("login token issue failed", zap.String("event", "login"), zap.String("user_id", user.ID), zap.Error(err))
		return LoginResult{}, err
	}

	obs.MetricInc(deps.Metrics.Success)
	obs.Log.Info("login succeeded", zap.String("event", "login"), zap.String("user_id", user.ID), zap.String("jti", pair.JTI))
	obs.emit(ctx, audit.Event{Type: audit.TypeLoginSuccess, UserID: user.ID, JTI: pair.JTI, Success: true})

	return LoginResult{User: user, Tokens: pair}, nil
}

func loginFailed(ctx context.Context, obs Observer, deps LoginDeps, userID, reason string) error {
	obs.MetricInc(deps.Metrics.Failure)
	obs.Log.Info("login failed",
		zap.String("event", "login"),
		zap.String("user_id", userID),
		zap.String("reason", reason),
	)
	obs.emit(ctx, audit.Event{Type: audit.TypeLoginFailure, UserID: userID, Reason: reason})
	return deps.Errors.BadCredentials
}

// upgradePassword rehashes with current parameters. Failures are logged and do
// not fail the login.
func upgradePassword(ctx context.Context, obs Observer, deps LoginDeps, user *store.UserRecord, password string) {
	hash, err := deps.HashPassword(password)
	if err != nil {
		obs.Log.Warn("password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	sctx, cancel := deps.StoreContext.bound(ctx)
	defer cancel()
	if err := deps.Users.UpdatePasswordHash(sctx, user.ID, hash); err != nil {
		obs.Log.Warn("password rehash not stored", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
	obs.MetricInc(deps.Metrics.PasswordRehash)
}
