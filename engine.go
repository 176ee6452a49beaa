package goAccess

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/goAccess/internal/audit"
	internalflows "github.com/MrEthical07/goAccess/internal/flows"
	"github.com/MrEthical07/goAccess/internal/limiters"
	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/jwt"
	"github.com/MrEthical07/goAccess/permission"
	"github.com/MrEthical07/goAccess/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine ties the token manager, the session manager and the RBAC evaluator
// together behind the operations an application calls per request.
//
// Engine instances are built once by [Builder.Build] and are safe for
// concurrent use.
type Engine struct {
	config Config
	log    *zap.Logger
	clock  func() time.Time

	jwtManager     *jwt.Manager
	sessions       *session.Manager
	roles          *permission.RoleStore
	perms          *permission.PermissionStore
	assignments    *permission.AssignmentStore
	evaluator      *permission.Evaluator
	refreshLimiter *limiters.RefreshLimiter
	audit          *internalaudit.Dispatcher
	metrics        *Metrics
	flows          internalflows.Service

	bgMu     sync.Mutex
	bgCancel context.CancelFunc
	bgGroup  *errgroup.Group
}

// Start launches signing-key rotation and the expired-session sweep in the
// background. They stop when ctx is cancelled or Close is called. Start
// returns an error if the engine is already running.
func (e *Engine) Start(ctx context.Context) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}

	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.bgCancel != nil {
		return errors.New("engine already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.jwtManager.RunRotation(gctx) })
	g.Go(func() error { return e.sessions.RunCleanup(gctx) })

	e.bgCancel = cancel
	e.bgGroup = g
	e.log.Info("background tasks started",
		zap.Bool("key_rotation", e.config.Token.JWKSRotationEnabled),
		zap.Duration("rotation_interval", e.config.Token.KeyRotationInterval),
		zap.Duration("cleanup_interval", e.config.Session.CleanupInterval),
	)
	return nil
}

// Close stops background tasks and flushes pending audit events. It is safe
// to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}

	e.bgMu.Lock()
	cancel, g := e.bgCancel, e.bgGroup
	e.bgCancel, e.bgGroup = nil, nil
	e.bgMu.Unlock()

	if cancel != nil {
		cancel()
		if err := g.Wait(); err != nil {
			e.log.Warn("background task exited with error", zap.Error(err))
		}
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login creates a session for a user whose credentials an external provider
// has already verified and returns an access and refresh token bound to it.
// The per-user session cap is enforced after the session is stored, so the
// least recently used sessions may be evicted.
//
// device is optional; when given and binding is enabled the tokens are bound
// to it. The client IP and user agent are taken from ctx unless client sets them.
func (e *Engine) Login(ctx context.Context, user identity.UserProfile, client identity.ClientInfo, device *identity.DeviceInfo) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	if client.IP == "" {
		client.IP = clientIPFromContext(ctx)
	}
	if client.UserAgent == "" {
		client.UserAgent = userAgentFromContext(ctx)
	}

	res := e.flows.Login(ctx, user, client, device)
	switch res.Failure {
	case internalflows.LoginFailureNone:
	case internalflows.LoginFailureSession:
		return nil, fmt.Errorf("%w: %w", ErrSessionCreationFailed, res.Err)
	default:
		return nil, res.Err
	}

	return &LoginResult{
		SessionID:    res.Session.ID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// ValidateAccess validates tokenStr using the engine's configured mode.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	return e.Validate(ctx, tokenStr, ModeInherit)
}

// Validate verifies an access token. ModeJWTOnly checks the token alone;
// ModeStrict also requires its session to be live and records the access.
// ModeInherit uses Config.ValidationMode.
//
// Failures wrap ErrUnauthorized together with the specific cause, so both
// errors.Is(err, ErrUnauthorized) and errors.Is(err, ErrTokenExpired) hold
// for an expired token. A device is read from ctx (see WithDeviceInfo).
func (e *Engine) Validate(ctx context.Context, tokenStr string, routeMode RouteMode) (*AuthResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	res := e.flows.Validate(ctx, tokenStr, int(routeMode), deviceFromContext(ctx))
	switch res.Failure {
	case internalflows.ValidateFailureNone:
	case internalflows.ValidateFailureInvalidRouteMode:
		return nil, ErrInvalidRouteMode
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, res.Err)
	}

	return buildResultFromClaims(res.Claims, ValidationMode(res.Mode)), nil
}

func buildResultFromClaims(claims *jwt.Claims, mode ValidationMode) *AuthResult {
	out := &AuthResult{
		UserID:         claims.Subject,
		SessionID:      claims.SessionID,
		TokenID:        claims.ID,
		Roles:          append([]string(nil), claims.Roles...),
		Permissions:    append([]string(nil), claims.Permissions...),
		Classification: claims.Classification,
		Mode:           mode,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out
}

// Authorize validates tokenStr and evaluates req for the caller it names.
// A denial is reported through the Decision, not the error; the error is
// non-nil only when the token itself is rejected.
func (e *Engine) Authorize(ctx context.Context, tokenStr string, req AccessRequest) (permission.Decision, *AuthResult, error) {
	res, err := e.Validate(ctx, tokenStr, ModeInherit)
	if err != nil {
		return permission.Decision{}, nil, err
	}
	return e.Evaluate(ctx, res, req), res, nil
}

// Evaluate runs the RBAC evaluator for an already validated caller. Roles and
// permissions from the token are merged with directly assigned grants.
func (e *Engine) Evaluate(ctx context.Context, caller *AuthResult, req AccessRequest) permission.Decision {
	if e == nil || e.evaluator == nil || caller == nil {
		return permission.Decision{Reason: ErrUnauthorized.Error()}
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthorizeLatency, time.Since(start)) }()
	}

	decision := e.evaluator.Evaluate(ctx, permission.Request{
		UserID:         caller.UserID,
		Roles:          caller.Roles,
		Permissions:    caller.Permissions,
		Classification: caller.Classification,
		Resource:       req.Resource,
		Action:         req.Action,
		ResourceOwner:  req.ResourceOwner,
		Location:       req.Location,
		Time:           req.Time,
		Attributes:     req.Attributes,
	})
	if decision.Allowed {
		e.metricInc(MetricAuthzAllowed)
		return decision
	}

	e.metricInc(MetricAuthzDenied)
	if decision.Reason == permission.ReasonConditionsNotMet {
		e.metricInc(MetricAuthzConditionFailed)
	}
	e.emitAudit(ctx, auditEventAccessDenied, false, caller.UserID, caller.SessionID, ErrPermissionDenied, func() map[string]string {
		return map[string]string{
			"resource": req.Resource,
			"action":   req.Action,
			"reason":   decision.Reason,
		}
	})
	return decision
}

// Refresh exchanges a refresh token for a new access token signed with the
// current key. The refresh token's session must still be live, and refreshes
// are throttled per session when Security.EnableRefreshThrottle is set.
//
// A throttled call returns ErrRefreshRateLimited; every other failure wraps
// ErrRefreshInvalid together with its cause.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Refresh(ctx, refreshToken, deviceFromContext(ctx))
	switch res.Failure {
	case internalflows.RefreshFailureNone:
	case internalflows.RefreshFailureRateLimited:
		return nil, ErrRefreshRateLimited
	default:
		return nil, fmt.Errorf("%w: %w", ErrRefreshInvalid, res.Err)
	}

	return &RefreshResult{
		SessionID:   res.SessionID,
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
	}, nil
}

// Logout deletes sessionID. Tokens already issued for it keep verifying in
// ModeJWTOnly until they expire or are revoked.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return e.flows.Logout(ctx, sessionID)
}

// LogoutByAccessToken revokes a valid access token and deletes its session.
// Extra tokens, usually the matching refresh token, are revoked too.
func (e *Engine) LogoutByAccessToken(ctx context.Context, tokenStr string, alsoRevoke ...string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	res := e.flows.LogoutByAccessToken(ctx, tokenStr, alsoRevoke...)
	if res.Err != nil {
		if res.SessionID == "" {
			return fmt.Errorf("%w: %w", ErrUnauthorized, res.Err)
		}
		return res.Err
	}
	return nil
}

// LogoutAll deletes every session of userID and returns how many there were.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if e == nil || !e.flows.Initialized() {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrUserRequired
	}
	return e.flows.LogoutAll(ctx, userID)
}

// RevokeToken permanently rejects tokenStr. Revoking a malformed or unknown
// token is not an error; it simply can never validate.
func (e *Engine) RevokeToken(ctx context.Context, tokenStr string) {
	if e == nil || e.jwtManager == nil {
		return
	}
	e.jwtManager.RevokeToken(tokenStr)
	e.metricInc(MetricTokenRevoked)

	var userID, sessionID string
	if claims, ok := e.jwtManager.DecodeToken(tokenStr); ok {
		userID, sessionID = claims.Subject, claims.SessionID
	}
	e.emitAudit(ctx, auditEventTokenRevoked, true, userID, sessionID, nil, nil)
}

// RotateKeys creates a new current signing key. Earlier keys keep verifying
// until they expire.
func (e *Engine) RotateKeys() (jwt.SigningKey, error) {
	if e == nil || e.jwtManager == nil {
		return jwt.SigningKey{}, ErrEngineNotReady
	}
	return e.jwtManager.RotateKeys()
}

// JWKS returns the public metadata of every active signing key.
func (e *Engine) JWKS() jwt.JWKS {
	if e == nil || e.jwtManager == nil {
		return jwt.JWKS{Keys: []jwt.JWK{}}
	}
	return e.jwtManager.JWKS()
}

// EffectivePermissions resolves the permission ids granted by roleIDs,
// following inheritance.
func (e *Engine) EffectivePermissions(roleIDs []string) []string {
	if e == nil || e.evaluator == nil {
		return nil
	}
	return e.evaluator.EffectivePermissions(roleIDs)
}

// Roles returns the role store. Changes take effect on the next evaluation.
func (e *Engine) Roles() *permission.RoleStore { return e.roles }

// Permissions returns the permission store.
func (e *Engine) Permissions() *permission.PermissionStore { return e.perms }

// Assignments returns the store of roles and permissions granted directly to users.
func (e *Engine) Assignments() *permission.AssignmentStore { return e.assignments }

// RegisterCondition binds fn to custom conditions named name.
func (e *Engine) RegisterCondition(name string, fn permission.CustomFunc) {
	e.evaluator.RegisterCustom(name, fn)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) resolveRouteMode(routeMode int) (int, bool) {
	return internalflows.ResolveRouteMode(routeMode, int(e.config.ValidationMode), internalflows.ModeResolverConfig{
		ModeInherit: int(ModeInherit),
		ModeJWTOnly: int(ModeJWTOnly),
		ModeStrict:  int(ModeStrict),
	})
}
