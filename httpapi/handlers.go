package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/internal/logging"
	"github.com/MrEthical07/goAccess/middleware"
	"github.com/MrEthical07/goAccess/permission"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// logFor returns the request-scoped logger set by requestLogger.
func (a *api) logFor(r *http.Request) *zap.Logger {
	return logging.From(r.Context(), a.log)
}

type tokenRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type userPayload struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	Name           string            `json:"name"`
	Roles          []string          `json:"roles"`
	Permissions    []string          `json:"permissions"`
	Classification string            `json:"classification"`
	Provider       string            `json:"provider"`
	Attributes     map[string]string `json:"attributes"`
}

type loginRequest struct {
	User     userPayload `json:"user"`
	Platform string      `json:"platform"`
}

type authorizeRequest struct {
	Resource      string            `json:"resource"`
	Action        string            `json:"action"`
	ResourceOwner string            `json:"resource_owner"`
	Location      string            `json:"location"`
	Attributes    map[string]string `json:"attributes"`
}

type conditionFailure struct {
	Permission string `json:"permission"`
	Kind       string `json:"kind"`
	Reason     string `json:"reason"`
}

type authorizeResponse struct {
	Allowed          bool                    `json:"allowed"`
	Reason           string                  `json:"reason"`
	Permission       string                  `json:"permission,omitempty"`
	Classification   identity.Classification `json:"classification,omitempty"`
	FailedConditions []conditionFailure      `json:"failed_conditions,omitempty"`
}

type sessionView struct {
	SessionID      string                  `json:"session_id"`
	Provider       string                  `json:"provider,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	LastAccessedAt time.Time               `json:"last_accessed_at"`
	ExpiresAt      time.Time               `json:"expires_at"`
	IP             string                  `json:"ip,omitempty"`
	UserAgent      string                  `json:"user_agent,omitempty"`
	DeviceID       string                  `json:"device_id,omitempty"`
	Platform       string                  `json:"platform,omitempty"`
	Classification identity.Classification `json:"classification,omitempty"`
	Current        bool                    `json:"current"`
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) jwks(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, a.engine.JWKS())
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	presented := r.Header.Get(HeaderProviderKey)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(a.providerKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid_client", "provider key required")
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := identity.UserProfile{
		ID:          req.User.ID,
		Email:       req.User.Email,
		Name:        req.User.Name,
		Roles:       req.User.Roles,
		Permissions: req.User.Permissions,
		Provider:    req.User.Provider,
		Attributes:  req.User.Attributes,
	}
	if req.User.Classification != "" {
		c, err := identity.ParseClassification(req.User.Classification)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown classification")
			return
		}
		user.Classification = c
	}

	ctx := middleware.RequestContext(r)
	device := middleware.DeviceFromRequest(r)
	client := identity.ClientInfo{Platform: req.Platform}
	if device != nil {
		client.DeviceID = device.DeviceID
		if client.Platform == "" {
			client.Platform = device.Platform
		}
	}

	res, err := a.engine.Login(ctx, user, client, device)
	if err != nil {
		if errors.Is(err, goAccess.ErrSessionCreationFailed) {
			a.logFor(r).Error("login failed", zap.String("user_id", user.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "server_error", "session could not be created")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid user profile")
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{
		SessionID:    res.SessionID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(res.ExpiresIn / time.Second),
	})
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	res, err := a.engine.Refresh(middleware.RequestContext(r), req.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, goAccess.ErrRefreshRateLimited):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "slow_down", "refresh rate limit exceeded")
		return
	default:
		writeError(w, http.StatusUnauthorized, "invalid_grant", "refresh token rejected")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		SessionID:   res.SessionID,
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(res.ExpiresIn / time.Second),
	})
}

// revoke answers 200 for any token, including unknown ones, as RFC 7009 does.
func (a *api) revoke(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}
	a.engine.RevokeToken(middleware.RequestContext(r), req.Token)
	w.WriteHeader(http.StatusOK)
}

func (a *api) introspect(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := a.engine.Introspect(middleware.RequestContext(r), req.Token)
	if err != nil {
		a.logFor(r).Error("introspect failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "introspection unavailable")
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (a *api) authorize(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "")
		return
	}
	var req authorizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dec := a.engine.Evaluate(r.Context(), caller, goAccess.AccessRequest{
		Resource:      req.Resource,
		Action:        req.Action,
		ResourceOwner: req.ResourceOwner,
		Location:      req.Location,
		Attributes:    req.Attributes,
	})
	if dec.Reason == permission.ReasonInvalidRequest {
		writeError(w, http.StatusBadRequest, "invalid_request", dec.Reason)
		return
	}
	writeJSON(w, http.StatusOK, toAuthorizeResponse(dec))
}

func toAuthorizeResponse(dec permission.Decision) authorizeResponse {
	out := authorizeResponse{
		Allowed:        dec.Allowed,
		Reason:         dec.Reason,
		Classification: dec.Classification,
	}
	if dec.Permission != nil {
		out.Permission = dec.Permission.ID
	}
	for _, f := range dec.FailedConditions {
		out.FailedConditions = append(out.FailedConditions, conditionFailure{
			Permission: f.PermissionID,
			Kind:       string(f.Kind),
			Reason:     f.Reason,
		})
	}
	return out
}

func (a *api) listSessions(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.AuthResultFromContext(r.Context())
	sessions, err := a.engine.ListSessions(r.Context(), caller.UserID)
	if err != nil {
		a.logFor(r).Error("list sessions failed", zap.String("user_id", caller.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "sessions unavailable")
		return
	}

	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionView{
			SessionID:      s.SessionID,
			Provider:       s.Provider,
			CreatedAt:      s.CreatedAt,
			LastAccessedAt: s.LastAccessedAt,
			ExpiresAt:      s.ExpiresAt,
			IP:             s.IP,
			UserAgent:      s.UserAgent,
			DeviceID:       s.DeviceID,
			Platform:       s.Platform,
			Classification: s.Classification,
			Current:        s.SessionID == caller.SessionID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (a *api) logoutCurrent(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.AuthResultFromContext(r.Context())
	token, _ := middleware.BearerToken(r)

	err := a.engine.LogoutByAccessToken(middleware.RequestContext(r), token)
	if err != nil && !errors.Is(err, goAccess.ErrSessionNotFound) {
		a.logFor(r).Warn("logout failed", zap.String("session_id", caller.SessionID), zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid_token", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) logoutAll(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.AuthResultFromContext(r.Context())
	n, err := a.engine.LogoutAll(r.Context(), caller.UserID)
	if err != nil {
		a.logFor(r).Error("logout all failed", zap.String("user_id", caller.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sessions_ended": n})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	body := map[string]string{"error": code}
	if description != "" {
		body["error_description"] = description
	}
	if status == http.StatusUnauthorized && code == "invalid_token" {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
