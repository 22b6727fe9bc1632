package auth

import (
	"errors"

	"github.com/Turbo-Dex/backend/refresh"
	"github.com/Turbo-Dex/backend/store"
)

var (
	// ErrUsernameTaken is returned by Signup when the case-folded username exists.
	ErrUsernameTaken = errors.New("username taken")
	// ErrBadCredentials is returned by Login for an unknown user or a wrong password.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrInvalidRefresh is returned by Refresh for tokens that fail verification or expired.
	ErrInvalidRefresh = refresh.ErrInvalidRefresh
	// ErrReuseDetected is returned by Refresh when a revoked or unknown token is replayed.
	// Every refresh token of the user has been revoked.
	ErrReuseDetected = refresh.ErrReuseDetected
	// ErrUserNotFound is returned by ResetPassword for an unknown username.
	ErrUserNotFound = errors.New("user not found")
	// ErrBadRecoveryCode is returned by ResetPassword when the recovery code does not match.
	ErrBadRecoveryCode = errors.New("bad recovery code")
	// ErrTokenMissing is returned by Authenticate for an empty bearer token.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenExpired is returned by Authenticate for a correctly signed token past exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned by Authenticate for every other token failure.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrStoreUnavailable marks infrastructure failures. The cause stays in the chain.
	ErrStoreUnavailable = store.ErrUnavailable
	// ErrInvalidInput is returned for empty usernames or passwords.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not ready")
)

// IsAuthFailure reports whether err is an authentication failure the caller should
// answer with 401: bad credentials, an invalid refresh token or detected reuse.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrBadCredentials) ||
		errors.Is(err, ErrInvalidRefresh) ||
		errors.Is(err, ErrReuseDetected)
}
