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

// ResetMetrics carries metric IDs used by the password reset flow.
type ResetMetrics struct {
	Success int
	Failure int
}

// ResetErrors carries host sentinel errors used by the password reset flow.
type ResetErrors struct {
	EngineNotReady  error
	InvalidInput    error
	UserNotFound    error
	BadRecoveryCode error
}

// ResetDeps captures password reset dependencies.
type ResetDeps struct {
	Users        store.UserStore
	StoreContext StoreContext

	VerifyRecoveryCode func(code, hash string) bool
	HashPassword       func(string) (string, error)

	RotateRecoveryCode bool
	NewRecoveryCode    func() (code, hash string, err error)

	RevokeSessions bool
	RevokeAll      func(ctx context.Context, userID string) (int64, error)

	Observer Observer
	Metrics  ResetMetrics
	Errors   ResetErrors
}

// ResetResult reports the optional side effects of a reset.
type ResetResult struct {
	UserID          string
	RecoveryCode    string
	SessionsRevoked int64
}

// RunReset replaces a user's password after checking the recovery code. By default
// nothing else changes; RotateRecoveryCode and RevokeSessions opt into more.
func RunReset(ctx context.Context, username, code, newPassword string, deps ResetDeps) (ResetResult, error) {
	if deps.Users == nil || deps.VerifyRecoveryCode == nil || deps.HashPassword == nil {
		return ResetResult{}, deps.Errors.EngineNotReady
	}
	if (deps.RotateRecoveryCode && deps.NewRecoveryCode == nil) || (deps.RevokeSessions && deps.RevokeAll == nil) {
		return ResetResult{}, deps.Errors.EngineNotReady
	}
	obs := deps.Observer.withDefaults()

	if strings.TrimSpace(username) == "" || newPassword == "" {
		return ResetResult{}, deps.Errors.InvalidInput
	}

	user, err := findUser(ctx, deps.Users, deps.StoreContext, store.UsernameKey(username))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ResetResult{}, resetFailed(ctx, obs, deps, "", "user_not_found", deps.Errors.UserNotFound)
	case err != nil:
		return ResetResult{}, store.Unavailable(err)
	}

	if !deps.VerifyRecoveryCode(code, user.RecoveryCodeHash) {
		return ResetResult{}, resetFailed(ctx, obs, deps, user.ID, "bad_recovery", deps.Errors.BadRecoveryCode)
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return ResetResult{}, fmt.Errorf("hash password: %w", err)
	}
	if err := updateUser(ctx, deps.StoreContext, func(sctx context.Context) error {
		return deps.Users.UpdatePasswordHash(sctx, user.ID, hash)
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ResetResult{}, resetFailed(ctx, obs, deps, user.ID, "user_not_found", deps.Errors.UserNotFound)
		}
		return ResetResult{}, store.Unavailable(err)
	}

	out := ResetResult{UserID: user.ID}

	if deps.RotateRecoveryCode {
		next, nextHash, err := deps.NewRecoveryCode()
		if err != nil {
			return out, fmt.Errorf("generate recovery code: %w", err)
		}
		if err := updateUser(ctx, deps.StoreContext, func(sctx context.Context) error {
			return deps.Users.UpdateRecoveryCodeHash(sctx, user.ID, nextHash)
		}); err != nil {
			return out, store.Unavailable(err)
		}
		out.RecoveryCode = next
	}

	if deps.RevokeSessions {
		n, err := deps.RevokeAll(ctx, user.ID)
		out.SessionsRevoked = n
		if err != nil {
			obs.Log.Error("reset session revoke failed", zap.String("event", "password_reset"), zap.String("user_id", user.ID), zap.Error(err))
			return out, err
		}
	}

	obs.MetricInc(deps.Metrics.Success)
	obs.Log.Info("password reset",
		zap.String("event", "password_reset"),
		zap.String("user_id", user.ID),
		zap.Bool("code_rotated", out.RecoveryCode != ""),
		zap.Int64("sessions_revoked", out.SessionsRevoked),
	)
	obs.emit(ctx, audit.Event{Type: audit.TypeResetSuccess, UserID: user.ID, Success: true})

	return out, nil
}

func updateUser(ctx context.Context, bound StoreContext, fn func(context.Context) error) error {
	sctx, cancel := bound.bound(ctx)
	defer cancel()
	return fn(sctx)
}

func resetFailed(ctx context.Context, obs Observer, deps ResetDeps, userID, reason string, err error) error {
	obs.MetricInc(deps.Metrics.Failure)
	obs.Log.Info("password reset rejected",
		zap.String("event", "password_reset"),
		zap.String("user_id", userID),
		zap.String("reason", reason),
	)
	obs.emit(ctx, audit.Event{Type: audit.TypeResetFailure, UserID: userID, Reason: reason})
	return err
}
