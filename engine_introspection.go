package goAccess

import (
	"context"

	"github.com/MrEthical07/goAccess/session"
)

// Introspect describes the introspect operation and its observable behavior.
//
// Introspect reports whether tokenStr would currently be accepted. Invalid,
// expired and revoked tokens yield an inactive result and a nil error. When
// the engine runs in ModeStrict a token whose session has ended is inactive.
func (e *Engine) Introspect(ctx context.Context, tokenStr string) (Introspection, error) {
	if e == nil || !e.flows.Initialized() {
		return Introspection{}, ErrEngineNotReady
	}
	in, err := e.flows.Introspect(ctx, tokenStr)
	if err != nil {
		return Introspection{}, err
	}
	return Introspection{
		Active:         in.Active,
		Subject:        in.Subject,
		SessionID:      in.SessionID,
		TokenID:        in.TokenID,
		TokenUse:       in.TokenUse,
		Issuer:         in.Issuer,
		Audience:       in.Audience,
		KID:            in.KID,
		Roles:          in.Roles,
		Permissions:    in.Permissions,
		Classification: in.Classification,
		IssuedAt:       in.IssuedAt,
		ExpiresAt:      in.ExpiresAt,
	}, nil
}

// ListSessions describes the listsessions operation and its observable behavior.
//
// ListSessions returns the live sessions of userID, oldest first. Expired
// sessions found along the way are removed.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	recs, err := e.flows.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]SessionInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSessionInfo(rec))
	}
	return out, nil
}

// GetSessionInfo returns the safe view of one live session.
func (e *Engine) GetSessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	rec, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	info := toSessionInfo(rec)
	return &info, nil
}

// ActiveSessionCount returns how many sessions are stored, including expired
// ones the sweep has not reached yet.
func (e *Engine) ActiveSessionCount(ctx context.Context) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessions.Count(ctx)
}

// CleanupExpiredSessions runs one expired-session sweep and returns how many
// sessions it removed.
func (e *Engine) CleanupExpiredSessions(ctx context.Context) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessions.CleanupExpiredSessions(ctx)
}

func toSessionInfo(rec session.Record) SessionInfo {
	return SessionInfo{
		SessionID:      rec.ID,
		UserID:         rec.UserID,
		Provider:       rec.Provider,
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
		ExpiresAt:      rec.ExpiresAt,
		IP:             rec.ClientInfo.IP,
		UserAgent:      rec.ClientInfo.UserAgent,
		DeviceID:       rec.ClientInfo.DeviceID,
		Platform:       rec.ClientInfo.Platform,
		Classification: rec.Classification,
	}
}
