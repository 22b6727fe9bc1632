package flows

import (
	"context"

	"go.uber.org/zap"

	"github.com/Turbo-Dex/backend/internal/audit"
)

// LogoutMetrics carries metric IDs used by the logout flow.
type LogoutMetrics struct {
	Logout int
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Revoke func(ctx context.Context, token string) error

	Observer Observer
	Metrics  LogoutMetrics
}

// RunLogout revokes the refresh token. The caller always observes success; store
// failures are logged and returned for metrics only.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) error {
	obs := deps.Observer.withDefaults()
	obs.MetricInc(deps.Metrics.Logout)
	if deps.Revoke == nil {
		return nil
	}

	if err := deps.Revoke(ctx, token); err != nil {
		obs.Log.Error("logout revoke failed", zap.String("event", "logout"), zap.Error(err))
		obs.emit(ctx, audit.Event{Type: audit.TypeLogout, Reason: "store_unavailable"})
		return err
	}
	obs.emit(ctx, audit.Event{Type: audit.TypeLogout, Success: true})
	return nil
}
