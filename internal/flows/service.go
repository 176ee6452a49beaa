package flows

import (
	"context"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/session"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.ValidateToken != nil
}

func (s Service) Login(ctx context.Context, user identity.UserProfile, client identity.ClientInfo, device *identity.DeviceInfo) LoginResult {
	return RunLogin(ctx, user, client, device, s.deps.Login)
}

func (s Service) Validate(ctx context.Context, token string, routeMode int, device *identity.DeviceInfo) ValidateResult {
	return RunValidate(ctx, token, routeMode, device, s.deps.Validate)
}

func (s Service) Refresh(ctx context.Context, refreshToken string, device *identity.DeviceInfo) RefreshResult {
	return RunRefresh(ctx, refreshToken, device, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, sessionID string) error {
	return RunLogout(ctx, sessionID, s.deps.Logout)
}

func (s Service) LogoutByAccessToken(ctx context.Context, token string, revokeAlso ...string) LogoutByAccessResult {
	return RunLogoutByAccessToken(ctx, token, s.deps.Logout, revokeAlso...)
}

func (s Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	return RunLogoutAll(ctx, userID, s.deps.Logout)
}

func (s Service) Introspect(ctx context.Context, token string) (Introspection, error) {
	return RunIntrospect(ctx, token, s.deps.Introspection)
}

func (s Service) ListSessions(ctx context.Context, userID string) ([]session.Record, error) {
	return RunListSessions(ctx, userID, s.deps.Introspection)
}
