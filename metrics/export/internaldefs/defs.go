package internaldefs

import (
	auth "github.com/Turbo-Dex/backend"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   auth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   auth.MetricID
	Name string
	Help string
}

// Audit drop counter.
const (
	AuditDroppedName = "turbodex_auth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: auth.MetricSignupSuccess, Name: "turbodex_auth_signup_success_total", Help: "Created accounts."},
	{ID: auth.MetricSignupDuplicate, Name: "turbodex_auth_signup_duplicate_total", Help: "Signups rejected because the username is taken."},
	{ID: auth.MetricLoginSuccess, Name: "turbodex_auth_login_success_total", Help: "Successful login attempts."},
	{ID: auth.MetricLoginFailure, Name: "turbodex_auth_login_failure_total", Help: "Failed login attempts."},
	{ID: auth.MetricPasswordRehashed, Name: "turbodex_auth_password_rehashed_total", Help: "Password hashes upgraded on login."},
	{ID: auth.MetricRefreshSuccess, Name: "turbodex_auth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: auth.MetricRefreshInvalid, Name: "turbodex_auth_refresh_invalid_total", Help: "Refresh attempts with an invalid or expired token."},
	{ID: auth.MetricRefreshReuseDetected, Name: "turbodex_auth_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: auth.MetricLogout, Name: "turbodex_auth_logout_total", Help: "Logout operations."},
	{ID: auth.MetricResetSuccess, Name: "turbodex_auth_password_reset_success_total", Help: "Completed password resets."},
	{ID: auth.MetricResetFailure, Name: "turbodex_auth_password_reset_failure_total", Help: "Rejected password resets."},
	{ID: auth.MetricAuthenticateSuccess, Name: "turbodex_auth_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: auth.MetricAuthenticateFailure, Name: "turbodex_auth_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: auth.MetricStoreUnavailable, Name: "turbodex_auth_store_unavailable_total", Help: "Operations failed by an unavailable store."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: auth.MetricAuthenticateLatency, Name: "turbodex_auth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without native histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
