package flows

import (
	"context"
	"errors"
	"strings"
	"time"
)

// AuthenticateMetrics carries metric IDs used by the authenticate flow.
type AuthenticateMetrics struct {
	Success int
	Failure int
}

// AuthenticateErrors carries host sentinel errors used by the authenticate flow.
type AuthenticateErrors struct {
	EngineNotReady error
	TokenMissing   error
	TokenExpired   error
	TokenInvalid   error
}

// AuthenticateDeps captures access token verification dependencies.
type AuthenticateDeps struct {
	VerifyAccess func(token string) (string, error)
	// CodecExpired is the codec's expiry sentinel.
	CodecExpired error

	ObserveLatency func(time.Duration)

	Observer Observer
	Metrics  AuthenticateMetrics
	Errors   AuthenticateErrors
}

// RunAuthenticate returns the subject of a valid access token. It does no I/O.
func RunAuthenticate(ctx context.Context, token string, deps AuthenticateDeps) (string, error) {
	if deps.VerifyAccess == nil {
		return "", deps.Errors.EngineNotReady
	}
	obs := deps.Observer.withDefaults()
	if deps.ObserveLatency != nil {
		start := time.Now()
		defer func() { deps.ObserveLatency(time.Since(start)) }()
	}

	token = strings.TrimSpace(token)
	if token == "" {
		obs.MetricInc(deps.Metrics.Failure)
		return "", deps.Errors.TokenMissing
	}

	userID, err := deps.VerifyAccess(token)
	if err != nil {
		obs.MetricInc(deps.Metrics.Failure)
		if deps.CodecExpired != nil && errors.Is(err, deps.CodecExpired) {
			return "", deps.Errors.TokenExpired
		}
		return "", deps.Errors.TokenInvalid
	}

	obs.MetricInc(deps.Metrics.Success)
	return userID, nil
}
