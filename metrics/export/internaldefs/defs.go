package internaldefs

import (
	goAccess "github.com/MrEthical07/goAccess"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goAccess.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goAccess.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAccess.MetricLoginSuccess, Name: "goaccess_login_success_total", Help: "Sessions created by successful logins."},
	{ID: goAccess.MetricLoginFailure, Name: "goaccess_login_failure_total", Help: "Rejected login requests."},
	{ID: goAccess.MetricTokenIssued, Name: "goaccess_token_issued_total", Help: "Access and refresh tokens issued."},
	{ID: goAccess.MetricValidateSuccess, Name: "goaccess_validate_success_total", Help: "Accepted access tokens."},
	{ID: goAccess.MetricValidateFailure, Name: "goaccess_validate_failure_total", Help: "Rejected access tokens."},
	{ID: goAccess.MetricTokenExpired, Name: "goaccess_token_expired_total", Help: "Tokens rejected as expired."},
	{ID: goAccess.MetricTokenRevoked, Name: "goaccess_token_revoked_total", Help: "Tokens added to the revocation set."},
	{ID: goAccess.MetricTokenUnknownKey, Name: "goaccess_token_unknown_key_total", Help: "Tokens naming an unknown or retired signing key."},
	{ID: goAccess.MetricBindingMismatch, Name: "goaccess_device_binding_mismatch_total", Help: "Tokens presented from a device other than the bound one."},
	{ID: goAccess.MetricRefreshSuccess, Name: "goaccess_refresh_success_total", Help: "Successful refresh operations."},
	{ID: goAccess.MetricRefreshFailure, Name: "goaccess_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: goAccess.MetricRefreshRateLimited, Name: "goaccess_refresh_rate_limited_total", Help: "Refreshes rejected by the per-session throttle."},
	{ID: goAccess.MetricKeyRotated, Name: "goaccess_key_rotated_total", Help: "Signing keys created."},
	{ID: goAccess.MetricKeyPruned, Name: "goaccess_key_pruned_total", Help: "Expired signing keys removed."},
	{ID: goAccess.MetricSessionCreated, Name: "goaccess_session_created_total", Help: "Created sessions."},
	{ID: goAccess.MetricSessionDeleted, Name: "goaccess_session_deleted_total", Help: "Explicitly deleted sessions."},
	{ID: goAccess.MetricSessionExpired, Name: "goaccess_session_expired_total", Help: "Sessions removed after expiry."},
	{ID: goAccess.MetricSessionEvicted, Name: "goaccess_session_evicted_total", Help: "Sessions evicted by the per-user cap."},
	{ID: goAccess.MetricLogout, Name: "goaccess_logout_total", Help: "Single-session logout operations."},
	{ID: goAccess.MetricLogoutAll, Name: "goaccess_logout_all_total", Help: "Logout-all operations."},
	{ID: goAccess.MetricAuthzAllowed, Name: "goaccess_authz_allowed_total", Help: "Allowed access decisions."},
	{ID: goAccess.MetricAuthzDenied, Name: "goaccess_authz_denied_total", Help: "Denied access decisions."},
	{ID: goAccess.MetricAuthzConditionFailed, Name: "goaccess_authz_condition_failed_total", Help: "Denials caused by unmet permission conditions."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAccess.MetricValidateLatency, Name: "goaccess_validate_latency_seconds", Help: "Validate latency histogram."},
	{ID: goAccess.MetricAuthorizeLatency, Name: "goaccess_authorize_latency_seconds", Help: "RBAC evaluation latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "goaccess_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the finite bucket upper bounds in seconds. The last
// engine bucket is +Inf and has no entry here.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
