package auth

import (
	"context"
	"time"

	"github.com/Turbo-Dex/backend/internal/audit"
	"github.com/Turbo-Dex/backend/internal/flows"
	"github.com/Turbo-Dex/backend/jwt"
)

func (e *Engine) initFlowDeps(dummyHash string) {
	e.flows = flows.New(flows.Deps{
		Signup:       e.signupFlowDeps(),
		Login:        e.loginFlowDeps(dummyHash),
		Refresh:      e.refreshFlowDeps(),
		Logout:       e.logoutFlowDeps(),
		Reset:        e.resetFlowDeps(),
		Authenticate: e.authenticateFlowDeps(),
	})
}

func (e *Engine) observer() flows.Observer {
	return flows.Observer{
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		Audit:     e.emitAudit,
		Log:       e.logger,
		Now:       e.now,
	}
}

func (e *Engine) emitAudit(ctx context.Context, ev audit.Event) {
	e.audit.Emit(ctx, ev)
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Store.Timeout)
}

func (e *Engine) signupFlowDeps() flows.SignupDeps {
	return flows.SignupDeps{
		Users:           e.users,
		StoreContext:    e.storeContext,
		HashPassword:    e.hasher.Hash,
		NewRecoveryCode: e.codes.Generate,
		Observer:        e.observer(),
		Metrics: flows.SignupMetrics{
			Success:   int(MetricSignupSuccess),
			Duplicate: int(MetricSignupDuplicate),
		},
		Errors: flows.SignupErrors{
			EngineNotReady: ErrEngineNotReady,
			InvalidInput:   ErrInvalidInput,
			UsernameTaken:  ErrUsernameTaken,
		},
	}
}

func (e *Engine) loginFlowDeps(dummyHash string) flows.LoginDeps {
	return flows.LoginDeps{
		Users:                  e.users,
		StoreContext:           e.storeContext,
		VerifyPassword:         e.hasher.Verify,
		DummyHash:              dummyHash,
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		PasswordNeedsUpgrade:   e.hasher.NeedsUpgrade,
		HashPassword:           e.hasher.Hash,
		IssueTokens:            e.ledger.Issue,
		Observer:               e.observer(),
		Metrics: flows.LoginMetrics{
			Success:        int(MetricLoginSuccess),
			Failure:        int(MetricLoginFailure),
			PasswordRehash: int(MetricPasswordRehashed),
		},
		Errors: flows.LoginErrors{
			EngineNotReady: ErrEngineNotReady,
			InvalidInput:   ErrInvalidInput,
			BadCredentials: ErrBadCredentials,
		},
	}
}

func (e *Engine) refreshFlowDeps() flows.RefreshDeps {
	return flows.RefreshDeps{
		Rotate:   e.ledger.Rotate,
		Observer: e.observer(),
		Metrics: flows.RefreshMetrics{
			Success:       int(MetricRefreshSuccess),
			Invalid:       int(MetricRefreshInvalid),
			ReuseDetected: int(MetricRefreshReuseDetected),
		},
		Errors: flows.RefreshErrors{
			EngineNotReady: ErrEngineNotReady,
		},
	}
}

func (e *Engine) logoutFlowDeps() flows.LogoutDeps {
	return flows.LogoutDeps{
		Revoke:   e.ledger.Revoke,
		Observer: e.observer(),
		Metrics: flows.LogoutMetrics{
			Logout: int(MetricLogout),
		},
	}
}

func (e *Engine) resetFlowDeps() flows.ResetDeps {
	return flows.ResetDeps{
		Users:              e.users,
		StoreContext:       e.storeContext,
		VerifyRecoveryCode: e.codes.Verify,
		HashPassword:       e.hasher.Hash,
		RotateRecoveryCode: e.config.Reset.RotateRecoveryCode,
		NewRecoveryCode:    e.codes.Generate,
		RevokeSessions:     e.config.Reset.RevokeSessions,
		RevokeAll:          e.ledger.RevokeAll,
		Observer:           e.observer(),
		Metrics: flows.ResetMetrics{
			Success: int(MetricResetSuccess),
			Failure: int(MetricResetFailure),
		},
		Errors: flows.ResetErrors{
			EngineNotReady:  ErrEngineNotReady,
			InvalidInput:    ErrInvalidInput,
			UserNotFound:    ErrUserNotFound,
			BadRecoveryCode: ErrBadRecoveryCode,
		},
	}
}

func (e *Engine) authenticateFlowDeps() flows.AuthenticateDeps {
	deps := flows.AuthenticateDeps{
		VerifyAccess: e.codec.VerifyAccess,
		CodecExpired: jwt.ErrExpired,
		Observer:     e.observer(),
		Metrics: flows.AuthenticateMetrics{
			Success: int(MetricAuthenticateSuccess),
			Failure: int(MetricAuthenticateFailure),
		},
		Errors: flows.AuthenticateErrors{
			EngineNotReady: ErrEngineNotReady,
			TokenMissing:   ErrTokenMissing,
			TokenExpired:   ErrTokenExpired,
			TokenInvalid:   ErrTokenInvalid,
		},
	}
	if e.metrics.LatencyEnabled() {
		deps.ObserveLatency = func(d time.Duration) { e.metrics.Observe(MetricAuthenticateLatency, d) }
	}
	return deps
}
