package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/jwt"
	"github.com/MrEthical07/goAccess/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureToken
	RefreshFailureDeviceBinding
	RefreshFailureNotRefresh
	RefreshFailureRateLimited
	RefreshFailureSession
	RefreshFailureIssue
)

// RefreshResult carries either the new access token or failure metadata.
type RefreshResult struct {
	Failure     RefreshFailureKind
	Err         error
	SessionID   string
	UserID      string
	AccessToken string
	ExpiresIn   time.Duration
	Claims      *jwt.Claims
}

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess     int
	RefreshFailure     int
	RefreshRateLimited int
	TokenIssued        int
	BindingMismatch    int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess        string
	RefreshInvalid        string
	RefreshRateLimited    string
	DeviceBindingRejected string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ValidateToken      func(string, *identity.DeviceInfo) jwt.ValidationResult
	RefreshAccessToken func(string) jwt.RefreshResult
	// CheckRate is nil when the refresh throttle is disabled.
	CheckRate    func(sessionID string) error
	TouchSession func(context.Context, string) (session.Record, error)

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics RefreshMetrics
	Events  RefreshEvents
}

// RunRefresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated; its session must still be live.
func RunRefresh(ctx context.Context, refreshToken string, device *identity.DeviceInfo, deps RefreshDeps) RefreshResult {
	fail := func(kind RefreshFailureKind, err error, claims *jwt.Claims) RefreshResult {
		out := RefreshResult{Failure: kind, Err: err, Claims: claims}
		if claims != nil {
			out.SessionID = claims.SessionID
			out.UserID = claims.Subject
		}
		metricInc(deps.MetricInc, deps.Metrics.RefreshFailure)
		event := deps.Events.RefreshInvalid
		switch kind {
		case RefreshFailureRateLimited:
			metricInc(deps.MetricInc, deps.Metrics.RefreshRateLimited)
			event = deps.Events.RefreshRateLimited
		case RefreshFailureDeviceBinding:
			metricInc(deps.MetricInc, deps.Metrics.BindingMismatch)
			event = deps.Events.DeviceBindingRejected
		}
		emitAudit(deps.EmitAudit, ctx, event, false, out.UserID, out.SessionID, err, nil)
		return out
	}

	res := deps.ValidateToken(refreshToken, device)
	if !res.Valid {
		if jwt.IsBindingError(res.Err) {
			return fail(RefreshFailureDeviceBinding, res.Err, res.Claims)
		}
		return fail(RefreshFailureToken, res.Err, res.Claims)
	}
	claims := res.Claims
	if !claims.IsRefresh() {
		return fail(RefreshFailureNotRefresh, jwt.ErrNotRefreshToken, claims)
	}

	if deps.CheckRate != nil {
		if err := deps.CheckRate(claims.SessionID); err != nil {
			return fail(RefreshFailureRateLimited, err, claims)
		}
	}

	if _, err := deps.TouchSession(ctx, claims.SessionID); err != nil {
		return fail(RefreshFailureSession, err, claims)
	}

	issued := deps.RefreshAccessToken(refreshToken)
	if !issued.Success {
		return fail(RefreshFailureIssue, issued.Err, claims)
	}

	metricInc(deps.MetricInc, deps.Metrics.RefreshSuccess)
	metricInc(deps.MetricInc, deps.Metrics.TokenIssued)
	emitAudit(deps.EmitAudit, ctx, deps.Events.RefreshSuccess, true, claims.Subject, claims.SessionID, nil, nil)

	return RefreshResult{
		SessionID:   claims.SessionID,
		UserID:      claims.Subject,
		AccessToken: issued.AccessToken,
		ExpiresIn:   issued.ExpiresIn,
		Claims:      issued.Claims,
	}
}
