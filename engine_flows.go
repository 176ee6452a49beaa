package goAccess

import (
	"context"

	internalflows "github.com/MrEthical07/goAccess/internal/flows"
	"github.com/MrEthical07/goAccess/session"
	"go.uber.org/zap"
)

// flowDeps wires every flow to this engine's managers. It is called once by
// Build after all managers exist.
func (e *Engine) flowDeps() internalflows.Deps {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	emit := func(ctx context.Context, eventType string, success bool, userID, sessionID string, err error, metadata func() map[string]string) {
		e.emitAudit(ctx, eventType, success, userID, sessionID, err, metadata)
	}

	var checkRate func(string) error
	if e.refreshLimiter != nil {
		checkRate = e.refreshLimiter.Allow
	}
	revoke := func(token string) {
		e.jwtManager.RevokeToken(token)
		e.metricInc(MetricTokenRevoked)
	}

	return internalflows.Deps{
		Login: internalflows.LoginDeps{
			CreateSession:        e.sessions.CreateSession,
			DeleteSession:        e.sessions.DeleteSession,
			GenerateAccessToken:  e.jwtManager.GenerateAccessToken,
			GenerateRefreshToken: e.jwtManager.GenerateRefreshToken,
			AccessTTL:            e.jwtManager.AccessTTL,
			MetricInc:            metricInc,
			EmitAudit:            emit,
			Warn: func(msg string, kv ...any) {
				e.log.Sugar().Warnw(msg, kv...)
			},
			Metrics: internalflows.LoginMetrics{
				LoginSuccess: int(MetricLoginSuccess),
				LoginFailure: int(MetricLoginFailure),
				TokenIssued:  int(MetricTokenIssued),
			},
			Events: internalflows.LoginEvents{
				LoginSuccess: auditEventLoginSuccess,
				LoginFailure: auditEventLoginFailure,
			},
			Errors: internalflows.LoginErrors{
				MissingUserID:         ErrUserRequired,
				InvalidClassification: ErrInvalidClassification,
			},
		},
		Validate: internalflows.ValidateDeps{
			ValidateToken:    e.jwtManager.ValidateToken,
			TouchSession:     e.sessions.TouchSession,
			ResolveRouteMode: e.resolveRouteMode,
			ModeStrict:       int(ModeStrict),
			MetricInc:        metricInc,
			EmitAudit:        emit,
			Metrics: internalflows.ValidateMetrics{
				ValidateSuccess: int(MetricValidateSuccess),
				ValidateFailure: int(MetricValidateFailure),
				TokenExpired:    int(MetricTokenExpired),
				TokenUnknownKey: int(MetricTokenUnknownKey),
				BindingMismatch: int(MetricBindingMismatch),
			},
			Events: internalflows.ValidateEvents{
				DeviceBindingRejected: auditEventDeviceBindingRejected,
				RevokedTokenUsed:      auditEventRevokedTokenUsed,
			},
			Errors: internalflows.ValidateErrors{
				InvalidRouteMode: ErrInvalidRouteMode,
				NotAccessToken:   ErrNotAccessToken,
			},
		},
		Refresh: internalflows.RefreshDeps{
			ValidateToken:      e.jwtManager.ValidateToken,
			RefreshAccessToken: e.jwtManager.RefreshAccessToken,
			CheckRate:          checkRate,
			TouchSession:       e.sessions.TouchSession,
			MetricInc:          metricInc,
			EmitAudit:          emit,
			Metrics: internalflows.RefreshMetrics{
				RefreshSuccess:     int(MetricRefreshSuccess),
				RefreshFailure:     int(MetricRefreshFailure),
				RefreshRateLimited: int(MetricRefreshRateLimited),
				TokenIssued:        int(MetricTokenIssued),
				BindingMismatch:    int(MetricBindingMismatch),
			},
			Events: internalflows.RefreshEvents{
				RefreshSuccess:        auditEventRefreshSuccess,
				RefreshInvalid:        auditEventRefreshInvalid,
				RefreshRateLimited:    auditEventRefreshRateLimited,
				DeviceBindingRejected: auditEventDeviceBindingRejected,
			},
		},
		Logout: internalflows.LogoutDeps{
			ValidateToken:      e.jwtManager.ValidateToken,
			RevokeToken:        revoke,
			DeleteSession:      e.sessions.DeleteSession,
			GetUserSessions:    e.sessions.GetUserSessions,
			DeleteUserSessions: e.sessions.DeleteUserSessions,
			ForgetSession:      e.refreshLimiter.Forget,
			MetricInc:          metricInc,
			EmitAudit:          emit,
			Metrics: internalflows.LogoutMetrics{
				Logout:    int(MetricLogout),
				LogoutAll: int(MetricLogoutAll),
			},
			Events: internalflows.LogoutEvents{
				LogoutSession: auditEventLogoutSession,
				LogoutAll:     auditEventLogoutAll,
			},
		},
		Introspection: internalflows.IntrospectionDeps{
			ValidateToken:     e.jwtManager.ValidateToken,
			ValidateSession:   e.sessions.ValidateSession,
			GetUserSessions:   e.sessions.GetUserSessions,
			CheckSession:      e.config.ValidationMode == ModeStrict,
			EngineNotReadyErr: ErrEngineNotReady,
			UserRequiredErr:   ErrUserRequired,
		},
	}
}

// onSessionEvent maps session lifecycle transitions to metrics and audit.
func (e *Engine) onSessionEvent(ev session.Event) {
	switch ev.Type {
	case session.EventCreated:
		e.metricInc(MetricSessionCreated)
	case session.EventDeleted:
		e.metricInc(MetricSessionDeleted)
	case session.EventExpired:
		e.metricInc(MetricSessionExpired)
	case session.EventEvicted:
		e.metricInc(MetricSessionEvicted)
		e.emitAudit(context.Background(), auditEventSessionEvicted, true, ev.UserID, ev.SessionID, nil, func() map[string]string {
			return map[string]string{"reason": "max_concurrent_sessions"}
		})
		e.log.Debug("session evicted", zap.String("user_id", ev.UserID), zap.String("session_id", ev.SessionID))
	}
}
