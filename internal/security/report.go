package security

import "time"

type Report struct {
	ProductionMode       bool
	SigningAlgorithm     string
	ValidationMode       int
	StrictMode           bool
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	KeyRotationEnabled   bool
	KeyRotationInterval  time.Duration
	ActiveSigningKeys    int
	DeviceBindingEnabled bool
	// BindingSecretPinned is false when binding keys are derived from a
	// per-process random secret.
	BindingSecretPinned bool
	MissingKIDAccepted  bool
	SessionCapsActive   bool
	MaxSessionsPerUser  int
	RateLimitingActive  bool
	AuditEnabled        bool
}

type ReportInput struct {
	ProductionMode          bool
	SigningAlgorithm        string
	ValidationMode          int
	StrictValidationMode    int
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	KeyRotationEnabled      bool
	KeyRotationInterval     time.Duration
	ActiveSigningKeys       int
	TokenBindingEnabled     bool
	BindingSecretLength     int
	AllowMissingKID         bool
	MaxConcurrentSessions   int
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
	AuditEnabled            bool
}

func BuildReport(input ReportInput) Report {
	rateLimiting := input.EnableRefreshThrottle &&
		input.MaxRefreshAttempts > 0 &&
		input.RefreshCooldownDuration > 0

	return Report{
		ProductionMode:       input.ProductionMode,
		SigningAlgorithm:     input.SigningAlgorithm,
		ValidationMode:       input.ValidationMode,
		StrictMode:           input.ValidationMode == input.StrictValidationMode,
		AccessTTL:            input.AccessTTL,
		RefreshTTL:           input.RefreshTTL,
		KeyRotationEnabled:   input.KeyRotationEnabled,
		KeyRotationInterval:  input.KeyRotationInterval,
		ActiveSigningKeys:    input.ActiveSigningKeys,
		DeviceBindingEnabled: input.TokenBindingEnabled,
		BindingSecretPinned:  input.TokenBindingEnabled && input.BindingSecretLength > 0,
		MissingKIDAccepted:   input.AllowMissingKID,
		SessionCapsActive:    input.MaxConcurrentSessions > 0,
		MaxSessionsPerUser:   input.MaxConcurrentSessions,
		RateLimitingActive:   rateLimiting,
		AuditEnabled:         input.AuditEnabled,
	}
}
