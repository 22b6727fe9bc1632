package httpapi

import (
	"errors"
	"net/http"

	auth "github.com/Turbo-Dex/backend"
)

// Error codes written in response bodies.
const (
	CodeInvalidInput     = "invalid_input"
	CodeUsernameTaken    = "username_taken"
	CodeBadCredentials   = "bad_credentials"
	CodeInvalidRefresh   = "invalid_refresh"
	CodeUserNotFound     = "user_not_found"
	CodeBadRecovery      = "bad_recovery"
	CodeStoreUnavailable = "store_unavailable"
	CodeNotReady         = "not_ready"
	CodeInternal         = "internal_error"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps engine errors to a response. Invalid and replayed refresh
// tokens share one code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusUnprocessableEntity, CodeInvalidInput
	case errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusConflict, CodeUsernameTaken
	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized, CodeBadCredentials
	case errors.Is(err, auth.ErrInvalidRefresh), errors.Is(err, auth.ErrReuseDetected):
		return http.StatusUnauthorized, CodeInvalidRefresh
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, CodeUserNotFound
	case errors.Is(err, auth.ErrBadRecoveryCode):
		return http.StatusBadRequest, CodeBadRecovery
	case errors.Is(err, auth.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, CodeStoreUnavailable
	case errors.Is(err, auth.ErrEngineNotReady):
		return http.StatusServiceUnavailable, CodeNotReady
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
