package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/jwt"
	"github.com/MrEthical07/goAccess/session"
)

// ModeResolverConfig allows host packages to resolve route/engine validation modes
// without importing host package-specific enums (avoids import cycles).
type ModeResolverConfig struct {
	ModeInherit int
	ModeJWTOnly int
	ModeStrict  int
}

// ResolveRouteMode resolves a route mode override against engine default mode.
func ResolveRouteMode(routeMode, engineMode int, cfg ModeResolverConfig) (int, bool) {
	switch routeMode {
	case cfg.ModeInherit:
		switch engineMode {
		case cfg.ModeJWTOnly, cfg.ModeStrict:
			return engineMode, true
		default:
			return 0, false
		}
	case cfg.ModeJWTOnly:
		return cfg.ModeJWTOnly, true
	case cfg.ModeStrict:
		return cfg.ModeStrict, true
	default:
		return 0, false
	}
}

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureInvalidRouteMode
	ValidateFailureToken
	ValidateFailureDeviceBinding
	ValidateFailureNotAccess
	ValidateFailureSession
)

// ValidateResult returns either claims/session success payload or classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Mode    int
	Claims  *jwt.Claims
	// Session is set only when the session was consulted.
	Session *session.Record
}

// ValidateMetrics carries metric IDs needed by the validate flow.
type ValidateMetrics struct {
	ValidateSuccess int
	ValidateFailure int
	TokenExpired    int
	TokenUnknownKey int
	BindingMismatch int
}

// ValidateEvents carries audit event names used by the validate flow. Only
// security-relevant failures are audited.
type ValidateEvents struct {
	DeviceBindingRejected string
	RevokedTokenUsed      string
}

// ValidateErrors carries host-level sentinel errors used by the validate flow.
type ValidateErrors struct {
	InvalidRouteMode error
	NotAccessToken   error
}

// ValidateDeps captures strict and jwt-only validation dependencies.
type ValidateDeps struct {
	ValidateToken    func(string, *identity.DeviceInfo) jwt.ValidationResult
	TouchSession     func(context.Context, string) (session.Record, error)
	ResolveRouteMode func(int) (int, bool)
	ModeStrict       int

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics ValidateMetrics
	Events  ValidateEvents
	Errors  ValidateErrors
}

// RunValidate verifies an access token. In strict mode the token's session
// must also be live; a successful check counts as session activity.
func RunValidate(ctx context.Context, token string, routeMode int, device *identity.DeviceInfo, deps ValidateDeps) ValidateResult {
	mode, ok := deps.ResolveRouteMode(routeMode)
	if !ok {
		return ValidateResult{Failure: ValidateFailureInvalidRouteMode, Err: deps.Errors.InvalidRouteMode}
	}

	res := deps.ValidateToken(token, device)
	if !res.Valid {
		recordTokenFailure(ctx, res, deps)
		kind := ValidateFailureToken
		if jwt.IsBindingError(res.Err) {
			kind = ValidateFailureDeviceBinding
		}
		return ValidateResult{Failure: kind, Err: res.Err, Mode: mode, Claims: res.Claims}
	}
	claims := res.Claims
	if claims.IsRefresh() {
		metricInc(deps.MetricInc, deps.Metrics.ValidateFailure)
		return ValidateResult{Failure: ValidateFailureNotAccess, Err: deps.Errors.NotAccessToken, Mode: mode}
	}

	if mode != deps.ModeStrict {
		metricInc(deps.MetricInc, deps.Metrics.ValidateSuccess)
		return ValidateResult{Mode: mode, Claims: claims}
	}

	rec, err := deps.TouchSession(ctx, claims.SessionID)
	if err != nil {
		metricInc(deps.MetricInc, deps.Metrics.ValidateFailure)
		return ValidateResult{Failure: ValidateFailureSession, Err: err, Mode: mode, Claims: claims}
	}
	metricInc(deps.MetricInc, deps.Metrics.ValidateSuccess)
	return ValidateResult{Mode: mode, Claims: claims, Session: &rec}
}

func recordTokenFailure(ctx context.Context, res jwt.ValidationResult, deps ValidateDeps) {
	metricInc(deps.MetricInc, deps.Metrics.ValidateFailure)
	switch {
	case errors.Is(res.Err, jwt.ErrTokenExpired):
		metricInc(deps.MetricInc, deps.Metrics.TokenExpired)
	case errors.Is(res.Err, jwt.ErrTokenRevoked):
		emitAudit(deps.EmitAudit, ctx, deps.Events.RevokedTokenUsed, false, "", "", res.Err, nil)
	case errors.Is(res.Err, jwt.ErrUnknownSigningKey):
		metricInc(deps.MetricInc, deps.Metrics.TokenUnknownKey)
	case jwt.IsBindingError(res.Err):
		metricInc(deps.MetricInc, deps.Metrics.BindingMismatch)
		var userID, sessionID string
		if res.Claims != nil {
			userID, sessionID = res.Claims.Subject, res.Claims.SessionID
		}
		emitAudit(deps.EmitAudit, ctx, deps.Events.DeviceBindingRejected, false, userID, sessionID, res.Err, func() map[string]string {
			return map[string]string{"reason": res.Err.Error()}
		})
	}
}
