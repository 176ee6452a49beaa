package goAccess

import (
	"time"

	internalsecurity "github.com/MrEthical07/goAccess/internal/security"
	"github.com/MrEthical07/goAccess/jwt"
)

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by [Engine.SecurityReport].
type SecurityReport struct {
	ProductionMode       bool
	SigningAlgorithm     string
	ValidationMode       ValidationMode
	StrictMode           bool
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	KeyRotationEnabled   bool
	KeyRotationInterval  time.Duration
	ActiveSigningKeys    int
	DeviceBindingEnabled bool
	BindingSecretPinned  bool
	MissingKIDAccepted   bool
	SessionCapsActive    bool
	MaxSessionsPerUser   int
	RateLimitingActive   bool
	AuditEnabled         bool
	// Lint holds the configuration warnings at the time of the report.
	Lint LintResult
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	activeKeys := 0
	if e.jwtManager != nil {
		activeKeys = len(e.jwtManager.Keys().Active())
	}

	r := internalsecurity.BuildReport(internalsecurity.ReportInput{
		ProductionMode:          e.config.Security.ProductionMode,
		SigningAlgorithm:        jwt.AlgorithmHS256,
		ValidationMode:          int(e.config.ValidationMode),
		StrictValidationMode:    int(ModeStrict),
		AccessTTL:               e.config.Token.AccessTokenLifetime,
		RefreshTTL:              e.config.Token.RefreshTokenLifetime,
		KeyRotationEnabled:      e.config.Token.JWKSRotationEnabled,
		KeyRotationInterval:     e.config.Token.KeyRotationInterval,
		ActiveSigningKeys:       activeKeys,
		TokenBindingEnabled:     e.config.Token.TokenBindingEnabled,
		BindingSecretLength:     len(e.config.Token.BindingSecret),
		AllowMissingKID:         e.config.Token.AllowMissingKID,
		MaxConcurrentSessions:   e.config.Session.MaxConcurrentSessions,
		EnableRefreshThrottle:   e.config.Security.EnableRefreshThrottle,
		MaxRefreshAttempts:      e.config.Security.MaxRefreshAttempts,
		RefreshCooldownDuration: e.config.Security.RefreshCooldownDuration,
		AuditEnabled:            e.config.Audit.Enabled,
	})

	return SecurityReport{
		ProductionMode:       r.ProductionMode,
		SigningAlgorithm:     r.SigningAlgorithm,
		ValidationMode:       ValidationMode(r.ValidationMode),
		StrictMode:           r.StrictMode,
		AccessTTL:            r.AccessTTL,
		RefreshTTL:           r.RefreshTTL,
		KeyRotationEnabled:   r.KeyRotationEnabled,
		KeyRotationInterval:  r.KeyRotationInterval,
		ActiveSigningKeys:    r.ActiveSigningKeys,
		DeviceBindingEnabled: r.DeviceBindingEnabled,
		BindingSecretPinned:  r.BindingSecretPinned,
		MissingKIDAccepted:   r.MissingKIDAccepted,
		SessionCapsActive:    r.SessionCapsActive,
		MaxSessionsPerUser:   r.MaxSessionsPerUser,
		RateLimitingActive:   r.RateLimitingActive,
		AuditEnabled:         r.AuditEnabled,
		Lint:                 e.config.Lint(),
	}
}
