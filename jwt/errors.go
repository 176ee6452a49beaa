package jwt

import "errors"

// Validation failures. The messages are part of the client-facing contract and
// must stay stable.
var (
	ErrTokenRevoked          = errors.New("Token has been revoked")
	ErrInvalidFormat         = errors.New("Invalid token format")
	ErrUnknownSigningKey     = errors.New("Unknown signing key")
	ErrInvalidSignature      = errors.New("Invalid token signature")
	ErrTokenExpired          = errors.New("Token has expired")
	ErrMissingClaims         = errors.New("Missing required claims")
	ErrInvalidClaims         = errors.New("Invalid token claims")
	ErrNotRefreshToken       = errors.New("Token is not a refresh token")
	ErrDeviceIDMismatch      = errors.New("Device ID mismatch")
	ErrFingerprintMismatch   = errors.New("Device fingerprint mismatch")
	ErrBindingHashMismatch   = errors.New("Device binding hash mismatch")
	ErrNoActiveKey           = errors.New("no active signing key")
	ErrMissingSubject        = errors.New("user id is required")
	ErrMissingSessionID      = errors.New("session id is required")
	ErrInvalidClassification = errors.New("user classification is invalid")
)

// IsBindingError reports whether err is one of the device-binding mismatch errors.
func IsBindingError(err error) bool {
	return errors.Is(err, ErrDeviceIDMismatch) ||
		errors.Is(err, ErrFingerprintMismatch) ||
		errors.Is(err, ErrBindingHashMismatch)
}
