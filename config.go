package goAccess

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the complete engine configuration. Build copies it; later
// mutation by the caller has no effect on a built Engine.
type Config struct {
	Token          TokenConfig
	Session        SessionConfig
	RBAC           RBACConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	Logging        LoggingConfig
	Security       SecurityConfig
	ValidationMode ValidationMode
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls JWT issuance, signing-key rotation and device binding.
type TokenConfig struct {
	Issuer   string
	Audience string

	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration

	// KeyRotationInterval is how often a new signing key is minted when
	// JWKSRotationEnabled is set. Each key verifies for twice this long.
	KeyRotationInterval time.Duration
	JWKSRotationEnabled bool

	TokenBindingEnabled bool
	// BindingSecret seeds the device-binding HMAC key. Empty means a random
	// per-process key, which invalidates bindings on restart.
	BindingSecret []byte

	// AllowMissingKID accepts tokens without a kid header against the current
	// key. Off by default.
	AllowMissingKID bool
	Leeway          time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and per-user limits.
type SessionConfig struct {
	SessionTimeout time.Duration
	// MaxConcurrentSessions caps live sessions per user; the least recently
	// used are evicted. Zero disables the cap.
	MaxConcurrentSessions int
	// CleanupInterval drives the background sweep started by Engine.Start.
	// Zero disables it; expiry is still enforced on read.
	CleanupInterval time.Duration
}

// RBACConfig tunes the role evaluator.
type RBACConfig struct {
	// CacheTTL bounds how long resolved role closures stay cached. Zero keeps
	// them until the next role change.
	CacheTTL time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LoggingConfig is consumed by binaries that build their own logger; the
// engine itself uses whatever *zap.Logger the Builder receives.
type LoggingConfig struct {
	Env         string
	Level       string
	ServiceName string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds abuse controls.
type SecurityConfig struct {
	ProductionMode          bool
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// ValidationMode selects how much state Engine.Validate consults.
type ValidationMode int

const (
	// ModeInherit defers to Config.ValidationMode; valid only as a per-route override.
	ModeInherit ValidationMode = -1

	// ModeJWTOnly verifies the token alone.
	ModeJWTOnly ValidationMode = iota
	// ModeStrict also requires the token's session to be live and touches it.
	ModeStrict
)

// RouteMode is the per-route override accepted by Engine.Validate.
type RouteMode = ValidationMode

func (m ValidationMode) String() string {
	switch m {
	case ModeInherit:
		return "inherit"
	case ModeJWTOnly:
		return "jwt_only"
	case ModeStrict:
		return "strict"
	default:
		return fmt.Sprintf("ValidationMode(%d)", int(m))
	}
}

// ParseValidationMode accepts the names returned by String.
func ParseValidationMode(raw string) (ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "jwt_only", "jwtonly", "jwt":
		return ModeJWTOnly, nil
	case "", "strict":
		return ModeStrict, nil
	default:
		return ModeStrict, fmt.Errorf("unknown validation mode %q", raw)
	}
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns development-friendly defaults.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:               "goaccess",
			AccessTokenLifetime:  15 * time.Minute,
			RefreshTokenLifetime: 24 * time.Hour,
			KeyRotationInterval:  24 * time.Hour,
			JWKSRotationEnabled:  true,
			TokenBindingEnabled:  false,
			Leeway:               0,
		},
		Session: SessionConfig{
			SessionTimeout:        24 * time.Hour,
			MaxConcurrentSessions: 5,
			CleanupInterval:       5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Env:   "dev",
			Level: "info",
		},
		Security: SecurityConfig{
			ProductionMode:          false,
			EnableRefreshThrottle:   true,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
		},
		ValidationMode: ModeStrict,
	}
}

// HighSecurityConfig tightens DefaultConfig for production: short-lived
// tokens, device binding, audit on, production checks enforced.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessTokenLifetime = 5 * time.Minute
	cfg.Token.RefreshTokenLifetime = 8 * time.Hour
	cfg.Token.KeyRotationInterval = 12 * time.Hour
	cfg.Token.TokenBindingEnabled = true
	cfg.Session.SessionTimeout = 8 * time.Hour
	cfg.Session.MaxConcurrentSessions = 3
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Logging.Env = "prod"
	cfg.Security.ProductionMode = true
	cfg.Security.MaxRefreshAttempts = 10
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.BindingSecret = cloneBytes(cfg.Token.BindingSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Token
	if c.Token.AccessTokenLifetime <= 0 {
		return errors.New("Token AccessTokenLifetime must be > 0")
	}
	if c.Token.RefreshTokenLifetime <= 0 {
		return errors.New("Token RefreshTokenLifetime must be > 0")
	}
	if c.Token.RefreshTokenLifetime < c.Token.AccessTokenLifetime {
		return errors.New("Token RefreshTokenLifetime must be >= AccessTokenLifetime")
	}
	if c.Token.JWKSRotationEnabled {
		if c.Token.KeyRotationInterval <= 0 {
			return errors.New("Token KeyRotationInterval must be > 0 when rotation is enabled")
		}
		if c.Token.RefreshTokenLifetime > c.Token.KeyRotationInterval {
			return errors.New("Token RefreshTokenLifetime must be <= KeyRotationInterval when rotation is enabled")
		}
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}
	if c.Token.Audience != "" && strings.TrimSpace(c.Token.Audience) == "" {
		return errors.New("Token Audience must not be blank")
	}
	if len(c.Token.BindingSecret) > 0 && len(c.Token.BindingSecret) < 16 {
		return errors.New("Token BindingSecret must be at least 16 bytes")
	}

	// Session
	if c.Session.SessionTimeout <= 0 {
		return errors.New("Session SessionTimeout must be > 0")
	}
	if c.Session.MaxConcurrentSessions < 0 {
		return errors.New("Session MaxConcurrentSessions must be >= 0")
	}
	if c.Session.CleanupInterval < 0 {
		return errors.New("Session CleanupInterval must be >= 0")
	}

	if c.RBAC.CacheTTL < 0 {
		return errors.New("RBAC CacheTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Security
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}

	switch c.ValidationMode {
	case ModeJWTOnly, ModeStrict:
	default:
		return errors.New("invalid ValidationMode")
	}

	if c.Security.ProductionMode {
		if c.Token.AccessTokenLifetime > 15*time.Minute {
			return errors.New("ProductionMode requires AccessTokenLifetime <= 15m")
		}
		if c.Token.RefreshTokenLifetime > 30*24*time.Hour {
			return errors.New("ProductionMode requires RefreshTokenLifetime <= 30d")
		}
		if !c.Token.JWKSRotationEnabled {
			return errors.New("ProductionMode requires JWKSRotationEnabled")
		}
		if c.Token.AllowMissingKID {
			return errors.New("ProductionMode forbids AllowMissingKID")
		}
		if c.ValidationMode != ModeStrict {
			return errors.New("ProductionMode requires ModeStrict validation")
		}
	}

	return nil
}
