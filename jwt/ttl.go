package jwt

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAccessTTL is used when the configured access lifetime is unusable.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is used when the configured refresh lifetime is unusable.
	DefaultRefreshTTL = 14 * 24 * time.Hour
	// DefaultLeeway is the clock skew tolerated during verification.
	DefaultLeeway = 30 * time.Second
)

// AccessTTLFromMinutes converts a configured minute count into a lifetime.
// Non-positive, unparsable or overflowing values fall back to DefaultAccessTTL.
func AccessTTLFromMinutes(raw string) time.Duration {
	return durationFrom(raw, time.Minute, DefaultAccessTTL)
}

// RefreshTTLFromDays converts a configured day count into a lifetime.
// Non-positive, unparsable or overflowing values fall back to DefaultRefreshTTL.
func RefreshTTLFromDays(raw string) time.Duration {
	return durationFrom(raw, 24*time.Hour, DefaultRefreshTTL)
}

func durationFrom(raw string, unit, fallback time.Duration) time.Duration {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 || n > math.MaxInt64/int64(unit) {
		return fallback
	}
	return time.Duration(n) * unit
}
