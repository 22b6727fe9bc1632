package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Turbo-Dex/backend/internal/audit"
	"github.com/Turbo-Dex/backend/store"
)

// SignupMetrics carries metric IDs used by the signup flow.
type SignupMetrics struct {
	Success   int
	Duplicate int
}

// SignupErrors carries host sentinel errors used by the signup flow.
type SignupErrors struct {
	EngineNotReady error
	InvalidInput   error
	UsernameTaken  error
}

// SignupDeps captures signup dependencies.
type SignupDeps struct {
	Users           store.UserStore
	StoreContext    StoreContext
	HashPassword    func(string) (string, error)
	NewRecoveryCode func() (code, hash string, err error)

	Observer Observer
	Metrics  SignupMetrics
	Errors   SignupErrors
}

// SignupResult is the created record plus the plaintext recovery code.
type SignupResult struct {
	User         store.UserRecord
	RecoveryCode string
}

// RunSignup creates a user. The uniqueness check runs up front and is enforced
// again by the store, so a concurrent duplicate still yields UsernameTaken.
func RunSignup(ctx context.Context, username, password, displayName string, deps SignupDeps) (SignupResult, error) {
	if deps.Users == nil || deps.HashPassword == nil || deps.NewRecoveryCode == nil {
		return SignupResult{}, deps.Errors.EngineNotReady
	}
	obs := deps.Observer.withDefaults()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return SignupResult{}, deps.Errors.InvalidInput
	}
	key := store.UsernameKey(username)

	_, err := findUser(ctx, deps.Users, deps.StoreContext, key)
	switch {
	case err == nil:
		obs.MetricInc(deps.Metrics.Duplicate)
		obs.Log.Info("signup rejected", zap.String("event", "signup"), zap.String("reason", "username_taken"))
		return SignupResult{}, deps.Errors.UsernameTaken
	case !errors.Is(err, store.ErrNotFound):
		return SignupResult{}, store.Unavailable(err)
	}

	passwordHash, err := deps.HashPassword(password)
	if err != nil {
		return SignupResult{}, fmt.Errorf("hash password: %w", err)
	}
	code, codeHash, err := deps.NewRecoveryCode()
	if err != nil {
		return SignupResult{}, fmt.Errorf("generate recovery code: %w", err)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}
	rec := store.UserRecord{
		Username:         username,
		UsernameKey:      key,
		DisplayName:      displayName,
		PasswordHash:     passwordHash,
		RecoveryCodeHash: codeHash,
		CreatedAt:        obs.Now().UTC(),
	}

	sctx, cancel := deps.StoreContext.bound(ctx)
	id, err := deps.Users.Insert(sctx, rec)
	cancel()
	switch {
	case errors.Is(err, store.ErrDuplicate):
		obs.MetricInc(deps.Metrics.Duplicate)
		obs.Log.Info("signup rejected", zap.String("event", "signup"), zap.String("reason", "username_taken"))
		return SignupResult{}, deps.Errors.UsernameTaken
	case err != nil:
		return SignupResult{}, store.Unavailable(err)
	}
	rec.ID = id

	obs.MetricInc(deps.Metrics.Success)
	obs.Log.Info("user signed up", zap.String("event", "signup"), zap.String("user_id", id))
	obs.emit(ctx, audit.Event{Type: audit.TypeSignup, UserID: id, Username: username, Success: true})

	return SignupResult{User: rec, RecoveryCode: code}, nil
}
