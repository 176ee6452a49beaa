package goAccess

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigNoHighWarnings(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Errorf("default config should not fail AsError(LintHigh): %v", err)
	}
}

func TestLint_HighSecurityConfigMinimalWarnings(t *testing.T) {
	cfg := HighSecurityConfig()
	codes := cfg.Lint().Codes()

	unwanted := []string{
		"leeway_large",
		"access_ttl_long",
		"refresh_ttl_long",
		"rotation_disabled",
		"refresh_throttle_disabled",
		"audit_disabled",
		"jwtonly_no_session_check",
	}
	for _, code := range unwanted {
		if containsCode(codes, code) {
			t.Errorf("HighSecurityConfig should not produce warning %q", code)
		}
	}
}

func TestLint_Findings(t *testing.T) {
	tests := []struct {
		code   string
		mutate func(*Config)
	}{
		{"leeway_large", func(c *Config) { c.Token.Leeway = 90 * time.Second }},
		{"access_ttl_long", func(c *Config) { c.Token.AccessTokenLifetime = time.Hour }},
		{"refresh_ttl_long", func(c *Config) { c.Token.RefreshTokenLifetime = 30 * 24 * time.Hour }},
		{"rotation_disabled", func(c *Config) { c.Token.JWKSRotationEnabled = false }},
		{"missing_kid_allowed", func(c *Config) { c.Token.AllowMissingKID = true }},
		{"binding_secret_ephemeral", func(c *Config) { c.Token.TokenBindingEnabled = true }},
		{"jwtonly_no_session_check", func(c *Config) { c.ValidationMode = ModeJWTOnly }},
		{"session_shorter_than_refresh", func(c *Config) { c.Session.SessionTimeout = time.Hour }},
		{"session_cap_disabled", func(c *Config) { c.Session.MaxConcurrentSessions = 0 }},
		{"refresh_throttle_disabled", func(c *Config) { c.Security.EnableRefreshThrottle = false }},
		{"audit_disabled", func(c *Config) { c.Audit.Enabled = false }},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if !containsCode(cfg.Lint().Codes(), tc.code) {
				t.Errorf("expected %s warning", tc.code)
			}
		})
	}
}

func TestLint_SeverityAssignment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.AllowMissingKID = true
	for _, w := range cfg.Lint() {
		if w.Code == "missing_kid_allowed" && w.Severity != LintHigh {
			t.Errorf("missing_kid_allowed should be HIGH, got %s", w.Severity)
		}
	}
}

func TestLint_AsErrorAndBySeverity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ValidationMode = ModeJWTOnly
	ws := cfg.Lint()

	if err := ws.AsError(LintHigh); err == nil {
		t.Error("expected AsError(LintHigh) to return error for JWT-only mode")
	}
	high := ws.BySeverity(LintHigh)
	if len(high) == 0 {
		t.Fatal("expected at least one HIGH severity warning")
	}
	for _, w := range high {
		if w.Severity < LintHigh {
			t.Errorf("BySeverity(LintHigh) returned warning with severity %s", w.Severity)
		}
	}
	if len(ws.BySeverity(LintInfo)) != len(ws) {
		t.Error("BySeverity(LintInfo) should return everything")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
