package flows

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Turbo-Dex/backend/internal/audit"
	"github.com/Turbo-Dex/backend/refresh"
)

// RefreshMetrics carries metric IDs used by the refresh flow.
type RefreshMetrics struct {
	Success       int
	Invalid       int
	ReuseDetected int
}

// RefreshErrors carries host sentinel errors used by the refresh flow.
type RefreshErrors struct {
	EngineNotReady error
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Rotate func(ctx context.Context, token string) (refresh.Rotation, error)

	Observer Observer
	Metrics  RefreshMetrics
	Errors   RefreshErrors
}

// RunRefresh rotates token. Invalid tokens and replays both fail; the log and
// audit trail keep them apart.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) (refresh.Pair, error) {
	if deps.Rotate == nil {
		return refresh.Pair{}, deps.Errors.EngineNotReady
	}
	obs := deps.Observer.withDefaults()

	rot, err := deps.Rotate(ctx, token)
	switch {
	case err == nil:
		obs.MetricInc(deps.Metrics.Success)
		obs.Log.Info("refresh rotated",
			zap.String("event", "refresh"),
			zap.String("user_id", rot.UserID),
			zap.String("jti", rot.JTI),
			zap.String("next_jti", rot.Pair.JTI),
		)
		obs.emit(ctx, audit.Event{Type: audit.TypeRefreshSuccess, UserID: rot.UserID, JTI: rot.JTI, Success: true})
		return rot.Pair, nil

	case errors.Is(err, refresh.ErrReuseDetected):
		obs.MetricInc(deps.Metrics.ReuseDetected)
		obs.Log.Warn("refresh rejected",
			zap.String("event", "refresh"),
			zap.String("reason", "reuse_detected"),
			zap.String("user_id", rot.UserID),
			zap.String("jti", rot.JTI),
			zap.Int64("chain_revoked", rot.ChainRevoked),
		)
		obs.emit(ctx, audit.Event{
			Type:   audit.TypeRefreshReuseDetected,
			UserID: rot.UserID,
			JTI:    rot.JTI,
			Reason: "reuse_detected",
		})
		return refresh.Pair{}, err

	case errors.Is(err, refresh.ErrInvalidRefresh):
		obs.MetricInc(deps.Metrics.Invalid)
		obs.Log.Warn("refresh rejected",
			zap.String("event", "refresh"),
			zap.String("reason", "invalid_refresh"),
			zap.String("user_id", rot.UserID),
			zap.String("jti", rot.JTI),
		)
		obs.emit(ctx, audit.Event{
			Type:   audit.TypeRefreshInvalid,
			UserID: rot.UserID,
			JTI:    rot.JTI,
			Reason: "invalid_refresh",
		})
		return refresh.Pair{}, err

	default:
		obs.Log.Error("refresh failed",
			zap.String("event", "refresh"),
			zap.String("user_id", rot.UserID),
			zap.String("jti", rot.JTI),
			zap.Error(err),
		)
		return refresh.Pair{}, err
	}
}
