package flows

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Turbo-Dex/backend/internal/audit"
	"github.com/Turbo-Dex/backend/store"
)

// Deps groups flow dependency sets. The root engine builds this once and delegates
// each operation to the matching flow.
type Deps struct {
	Signup       SignupDeps
	Login        LoginDeps
	Refresh      RefreshDeps
	Logout       LogoutDeps
	Reset        ResetDeps
	Authenticate AuthenticateDeps
}

// StoreContext derives the bounded context used for one store call.
type StoreContext func(context.Context) (context.Context, context.CancelFunc)

func (f StoreContext) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if f == nil {
		return ctx, func() {}
	}
	return f(ctx)
}

// Observer carries the side channels shared by every flow.
type Observer struct {
	MetricInc func(int)
	Audit     func(context.Context, audit.Event)
	Log       *zap.Logger
	Now       func() time.Time
}

func (o Observer) withDefaults() Observer {
	if o.MetricInc == nil {
		o.MetricInc = func(int) {}
	}
	if o.Audit == nil {
		o.Audit = func(context.Context, audit.Event) {}
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Observer) emit(ctx context.Context, ev audit.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = o.Now().UTC()
	}
	o.Audit(ctx, ev)
}

func findUser(ctx context.Context, users store.UserStore, bound StoreContext, key string) (store.UserRecord, error) {
	sctx, cancel := bound.bound(ctx)
	defer cancel()
	return users.FindByUsernameKey(sctx, key)
}
