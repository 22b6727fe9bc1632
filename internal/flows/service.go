package flows

import (
	"context"

	"github.com/Turbo-Dex/backend/refresh"
)

// Service runs flows over dependencies wired once by the root engine.
type Service struct {
	deps Deps
}

// New returns a Service bound to deps.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired.
func (s Service) Initialized() bool {
	return s.deps.Login.IssueTokens != nil && s.deps.Authenticate.VerifyAccess != nil
}

func (s Service) Signup(ctx context.Context, username, password, displayName string) (SignupResult, error) {
	return RunSignup(ctx, username, password, displayName, s.deps.Signup)
}

func (s Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	return RunLogin(ctx, username, password, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, token string) (refresh.Pair, error) {
	return RunRefresh(ctx, token, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, token string) error {
	return RunLogout(ctx, token, s.deps.Logout)
}

func (s Service) Reset(ctx context.Context, username, code, newPassword string) (ResetResult, error) {
	return RunReset(ctx, username, code, newPassword, s.deps.Reset)
}

func (s Service) Authenticate(ctx context.Context, token string) (string, error) {
	return RunAuthenticate(ctx, token, s.deps.Authenticate)
}
