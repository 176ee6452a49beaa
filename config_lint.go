package goAccess

import (
	"errors"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one advisory finding. Lint never rejects a config; Validate does.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins every warning at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, w.Severity.String()+" "+w.Code+": "+w.Message)
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports settings that are valid but risky.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, msg string) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Token.AllowMissingKID {
		add("missing_kid_allowed", LintHigh, "tokens without kid are checked against whatever key is current")
	}
	if c.Token.Leeway > time.Minute {
		add("leeway_large", LintWarn, "leeway above 1m extends every token past its exp")
	}
	if c.Token.AccessTokenLifetime > 15*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens live longer than 15m")
	}
	if c.Token.RefreshTokenLifetime > 7*24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh tokens live longer than 7d")
	}
	if !c.Token.JWKSRotationEnabled {
		add("rotation_disabled", LintWarn, "signing keys never rotate")
	}
	if c.Token.TokenBindingEnabled && len(c.Token.BindingSecret) == 0 {
		add("binding_secret_ephemeral", LintInfo, "device bindings do not survive a restart without BindingSecret")
	}
	if c.ValidationMode == ModeJWTOnly {
		add("jwtonly_no_session_check", LintHigh, "logout does not stop access tokens before they expire in JWT-only mode")
	}
	if c.Session.SessionTimeout < c.Token.RefreshTokenLifetime {
		add("session_shorter_than_refresh", LintInfo, "refresh tokens outlive the session they belong to")
	}
	if c.Session.MaxConcurrentSessions == 0 {
		add("session_cap_disabled", LintInfo, "users may hold unlimited sessions")
	}
	if !c.Security.EnableRefreshThrottle {
		add("refresh_throttle_disabled", LintWarn, "refresh exchanges are not rate limited")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "no audit trail is produced")
	}
	return out
}
