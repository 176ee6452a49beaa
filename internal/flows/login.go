package flows

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/session"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidUser
	LoginFailureSession
	LoginFailureIssueAccess
	LoginFailureIssueRefresh
)

// LoginResult carries the new session and token pair, or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	Session      session.Record
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess int
	LoginFailure int
	TokenIssued  int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	MissingUserID         error
	InvalidClassification error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	CreateSession        func(context.Context, identity.UserProfile, identity.ClientInfo, string) (session.Record, error)
	DeleteSession        func(context.Context, string) error
	GenerateAccessToken  func(identity.UserProfile, string, *identity.DeviceInfo) (string, error)
	GenerateRefreshToken func(identity.UserProfile, string, *identity.DeviceInfo) (string, error)
	AccessTTL            func() time.Duration

	MetricInc func(int)
	EmitAudit EmitAuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin creates a session for an already authenticated user and mints an
// access and refresh token bound to it. A session whose tokens could not be
// issued is removed again.
func RunLogin(ctx context.Context, user identity.UserProfile, client identity.ClientInfo, device *identity.DeviceInfo, deps LoginDeps) LoginResult {
	fail := func(kind LoginFailureKind, err error, sessionID string) LoginResult {
		metricInc(deps.MetricInc, deps.Metrics.LoginFailure)
		emitAudit(deps.EmitAudit, ctx, deps.Events.LoginFailure, false, user.ID, sessionID, err, func() map[string]string {
			return map[string]string{"provider": user.Provider}
		})
		return LoginResult{Failure: kind, Err: err}
	}

	if strings.TrimSpace(user.ID) == "" {
		return fail(LoginFailureInvalidUser, deps.Errors.MissingUserID, "")
	}
	if user.Classification == "" {
		user.Classification = identity.ClassificationOpen
	}
	if !user.Classification.Valid() {
		return fail(LoginFailureInvalidUser, deps.Errors.InvalidClassification, "")
	}
	if client.DeviceID == "" && device != nil {
		client.DeviceID = device.DeviceID
	}
	if client.Platform == "" && device != nil {
		client.Platform = device.Platform
	}

	rec, err := deps.CreateSession(ctx, user, client, user.Provider)
	if err != nil {
		return fail(LoginFailureSession, err, "")
	}

	rollback := func() {
		if delErr := deps.DeleteSession(ctx, rec.ID); delErr != nil && deps.Warn != nil {
			deps.Warn("login rollback failed", "session_id", rec.ID, "error", delErr)
		}
	}

	access, err := deps.GenerateAccessToken(user, rec.ID, device)
	if err != nil {
		rollback()
		return fail(LoginFailureIssueAccess, err, rec.ID)
	}
	refresh, err := deps.GenerateRefreshToken(user, rec.ID, device)
	if err != nil {
		rollback()
		return fail(LoginFailureIssueRefresh, err, rec.ID)
	}

	metricInc(deps.MetricInc, deps.Metrics.LoginSuccess)
	metricInc(deps.MetricInc, deps.Metrics.TokenIssued)
	metricInc(deps.MetricInc, deps.Metrics.TokenIssued)
	emitAudit(deps.EmitAudit, ctx, deps.Events.LoginSuccess, true, user.ID, rec.ID, nil, func() map[string]string {
		return map[string]string{
			"provider":       rec.Provider,
			"classification": string(rec.Classification),
		}
	})

	return LoginResult{
		Session:      rec,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    deps.AccessTTL(),
	}
}
