package goAccess

import (
	"errors"

	"github.com/MrEthical07/goAccess/internal/limiters"
	"github.com/MrEthical07/goAccess/jwt"
	"github.com/MrEthical07/goAccess/permission"
	"github.com/MrEthical07/goAccess/session"
)

var (
	// ErrUnauthorized is an exported constant or variable used by the access engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEngineNotReady is an exported constant or variable used by the access engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidRouteMode is returned by Validate for an unknown route mode.
	ErrInvalidRouteMode = errors.New("invalid route validation mode")
	// ErrNotAccessToken is returned when a refresh token is presented where an
	// access token is required.
	ErrNotAccessToken = errors.New("token is not an access token")
	// ErrRefreshInvalid wraps every refresh failure except throttling.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshRateLimited is returned when a session refreshes too often.
	ErrRefreshRateLimited = limiters.ErrRefreshRateLimited
	// ErrPermissionDenied is returned by RequirePermission-style helpers; Authorize
	// itself reports denials as a Decision.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSessionCreationFailed wraps session store failures during Login.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrUserRequired is returned by user-scoped operations given an empty user id.
	ErrUserRequired = errors.New("user id is required")
)

// Token validation outcomes, re-exported for errors.Is checks.
var (
	ErrTokenRevoked        = jwt.ErrTokenRevoked
	ErrInvalidFormat       = jwt.ErrInvalidFormat
	ErrUnknownSigningKey   = jwt.ErrUnknownSigningKey
	ErrInvalidSignature    = jwt.ErrInvalidSignature
	ErrTokenExpired        = jwt.ErrTokenExpired
	ErrMissingClaims       = jwt.ErrMissingClaims
	ErrInvalidClaims       = jwt.ErrInvalidClaims
	ErrNotRefreshToken     = jwt.ErrNotRefreshToken
	ErrDeviceIDMismatch    = jwt.ErrDeviceIDMismatch
	ErrFingerprintMismatch = jwt.ErrFingerprintMismatch
	ErrBindingHashMismatch = jwt.ErrBindingHashMismatch

	ErrInvalidClassification = jwt.ErrInvalidClassification
)

// Session and RBAC outcomes.
var (
	ErrSessionNotFound = session.ErrSessionNotFound
	ErrSessionExpired  = session.ErrSessionExpired
	ErrRoleNotFound    = permission.ErrRoleNotFound
	ErrRoleCycle       = permission.ErrRoleCycle
)

// IsDeviceBindingError reports whether err is one of the device binding mismatches.
func IsDeviceBindingError(err error) bool {
	return jwt.IsBindingError(err)
}
