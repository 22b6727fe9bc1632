package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	auth "github.com/Turbo-Dex/backend"
)

// Error codes written by RequireAuth.
const (
	CodeNotAuthenticated = "not_authenticated"
	CodeTokenExpired     = "token_expired"
	CodeInvalidToken     = "invalid_token"
)

// Authenticator verifies an access token. *auth.Engine satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (string, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer" access
// token and stores the authenticated user ID with auth.WithUserID.
func RequireAuth(engine Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w, CodeNotAuthenticated)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, CodeNotAuthenticated)
				return
			}

			userID, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				unauthorized(w, codeFor(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		return CodeNotAuthenticated
	case errors.Is(err, auth.ErrTokenExpired):
		return CodeTokenExpired
	default:
		return CodeInvalidToken
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="turbodex"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
