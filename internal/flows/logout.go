package flows

import (
	"context"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/jwt"
	"github.com/MrEthical07/goAccess/session"
)

// LogoutMetrics carries metric IDs needed by logout flows.
type LogoutMetrics struct {
	Logout    int
	LogoutAll int
}

// LogoutEvents carries audit event names used by logout flows.
type LogoutEvents struct {
	LogoutSession string
	LogoutAll     string
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ValidateToken      func(string, *identity.DeviceInfo) jwt.ValidationResult
	RevokeToken        func(string)
	DeleteSession      func(context.Context, string) error
	GetUserSessions    func(context.Context, string) ([]session.Record, error)
	DeleteUserSessions func(context.Context, string) (int, error)
	// ForgetSession drops per-session state held outside the session store.
	ForgetSession func(string)

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics LogoutMetrics
	Events  LogoutEvents
}

type LogoutByAccessResult struct {
	UserID    string
	SessionID string
	Err       error
}

func RunLogout(ctx context.Context, sessionID string, deps LogoutDeps) error {
	if err := deps.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if deps.ForgetSession != nil {
		deps.ForgetSession(sessionID)
	}
	metricInc(deps.MetricInc, deps.Metrics.Logout)
	emitAudit(deps.EmitAudit, ctx, deps.Events.LogoutSession, true, "", sessionID, nil, nil)
	return nil
}

// RunLogoutByAccessToken revokes a verified access token and ends its session.
// Any revokeAlso tokens (typically the refresh token) are revoked as well.
func RunLogoutByAccessToken(ctx context.Context, token string, deps LogoutDeps, revokeAlso ...string) LogoutByAccessResult {
	res := deps.ValidateToken(token, nil)
	if !res.Valid {
		return LogoutByAccessResult{Err: res.Err}
	}
	claims := res.Claims

	deps.RevokeToken(token)
	for _, t := range revokeAlso {
		if t != "" {
			deps.RevokeToken(t)
		}
	}
	if err := deps.DeleteSession(ctx, claims.SessionID); err != nil {
		return LogoutByAccessResult{UserID: claims.Subject, SessionID: claims.SessionID, Err: err}
	}
	if deps.ForgetSession != nil {
		deps.ForgetSession(claims.SessionID)
	}

	metricInc(deps.MetricInc, deps.Metrics.Logout)
	emitAudit(deps.EmitAudit, ctx, deps.Events.LogoutSession, true, claims.Subject, claims.SessionID, nil, nil)
	return LogoutByAccessResult{UserID: claims.Subject, SessionID: claims.SessionID}
}

// RunLogoutAll ends every session of userID and returns how many were live.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) (int, error) {
	var ids []string
	if deps.ForgetSession != nil && deps.GetUserSessions != nil {
		recs, err := deps.GetUserSessions(ctx, userID)
		if err != nil {
			return 0, err
		}
		for _, rec := range recs {
			ids = append(ids, rec.ID)
		}
	}

	n, err := deps.DeleteUserSessions(ctx, userID)
	for _, id := range ids {
		deps.ForgetSession(id)
	}
	if err != nil {
		return n, err
	}

	metricInc(deps.MetricInc, deps.Metrics.LogoutAll)
	emitAudit(deps.EmitAudit, ctx, deps.Events.LogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"sessions": itoa(n)}
	})
	return n, nil
}
