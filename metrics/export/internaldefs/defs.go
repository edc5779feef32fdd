package internaldefs

import (
	goBlog "github.com/MrEthical07/goBlog"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goBlog.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goBlog.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goBlog.MetricSessionResolved, Name: "goblog_session_resolved_total", Help: "Requests that carried a verified session."},
	{ID: goBlog.MetricSessionAbsent, Name: "goblog_session_absent_total", Help: "Requests without a session cookie."},
	{ID: goBlog.MetricSessionExpired, Name: "goblog_session_expired_total", Help: "Session tokens seen past expiry."},
	{ID: goBlog.MetricSessionInvalid, Name: "goblog_session_invalid_total", Help: "Session tokens that failed verification."},
	{ID: goBlog.MetricSessionRevoked, Name: "goblog_session_revoked_total", Help: "Session tokens rejected as revoked."},
	{ID: goBlog.MetricRefreshSuccess, Name: "goblog_refresh_success_total", Help: "Successful token refreshes."},
	{ID: goBlog.MetricRefreshFailure, Name: "goblog_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: goBlog.MetricRefreshShared, Name: "goblog_refresh_shared_total", Help: "Refresh results shared between callers or replicas."},
	{ID: goBlog.MetricRefreshThrottled, Name: "goblog_refresh_throttled_total", Help: "Refresh exchanges refused by the per-token throttle."},
	{ID: goBlog.MetricGuardAuthorized, Name: "goblog_guard_authorized_total", Help: "Guard evaluations that rendered the view."},
	{ID: goBlog.MetricGuardUnauthenticated, Name: "goblog_guard_unauthenticated_total", Help: "Guard redirects for missing sessions."},
	{ID: goBlog.MetricGuardSessionExpired, Name: "goblog_guard_session_expired_total", Help: "Guard redirects for expired sessions."},
	{ID: goBlog.MetricGuardForbidden, Name: "goblog_guard_forbidden_total", Help: "Guard redirects for insufficient roles."},
	{ID: goBlog.MetricLogin, Name: "goblog_login_total", Help: "Logins written to the auth cache."},
	{ID: goBlog.MetricLogout, Name: "goblog_logout_total", Help: "Logouts."},
	{ID: goBlog.MetricLogoutBackendFailure, Name: "goblog_logout_backend_failure_total", Help: "Logouts whose backend notification failed."},
	{ID: goBlog.MetricAuthStateError, Name: "goblog_auth_state_error_total", Help: "Auth state reads that reported an error."},
}

var HistogramDefs = []HistogramDef{
	{ID: goBlog.MetricResolveLatency, Name: "goblog_session_resolve_latency_seconds", Help: "Session resolve latency histogram."},
	{ID: goBlog.MetricRefreshLatency, Name: "goblog_refresh_latency_seconds", Help: "Backend refresh call latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's eight buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable inside metric names.
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

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
