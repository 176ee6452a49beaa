package goAccess

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventRefreshRateLimited    = "refresh_rate_limited"
	auditEventTokenRevoked          = "token_revoked"
	auditEventRevokedTokenUsed      = "revoked_token_used"
	auditEventLogoutSession         = "logout_session"
	auditEventLogoutAll             = "logout_all"
	auditEventSessionEvicted        = "session_evicted"
	auditEventDeviceBindingRejected = "device_binding_rejected"
	auditEventKeyRotated            = "key_rotated"
	auditEventAccessDenied          = "access_denied"
)

// AuditErrorCode is the stable error label recorded on failed audit events.
// It never carries token material or cryptographic detail.
type AuditErrorCode string

const (
	auditErrUnauthorized          AuditErrorCode = "unauthorized"
	auditErrRateLimited           AuditErrorCode = "rate_limited"
	auditErrInvalidToken          AuditErrorCode = "invalid_token"
	auditErrTokenExpired          AuditErrorCode = "token_expired"
	auditErrTokenRevoked          AuditErrorCode = "token_revoked"
	auditErrSessionNotFound       AuditErrorCode = "session_not_found"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrDeviceBindingRejected AuditErrorCode = "device_binding_rejected"
	auditErrInvalidUser           AuditErrorCode = "invalid_user"
	auditErrPermissionDenied      AuditErrorCode = "permission_denied"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case IsDeviceBindingError(err):
		return auditErrDeviceBindingRejected
	case errors.Is(err, ErrInvalidFormat),
		errors.Is(err, ErrUnknownSigningKey),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrMissingClaims),
		errors.Is(err, ErrInvalidClaims),
		errors.Is(err, ErrNotRefreshToken),
		errors.Is(err, ErrNotAccessToken),
		errors.Is(err, ErrRefreshInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrSessionExpired):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	case errors.Is(err, ErrUserRequired),
		errors.Is(err, ErrInvalidClassification):
		return auditErrInvalidUser
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	default:
		return auditErrInternal
	}
}
