package goAccess

import (
	"context"

	"github.com/MrEthical07/goAccess/identity"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type deviceInfoContextKey struct{}
type authResultContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine records it
// on audit events and on sessions created by Login.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithDeviceInfo attaches the presenting device to ctx. Validate and Refresh
// check it against the token's device binding when binding is enabled.
// Without it the binding check is skipped.
func WithDeviceInfo(ctx context.Context, device *identity.DeviceInfo) context.Context {
	return context.WithValue(ctx, deviceInfoContextKey{}, device)
}

// WithAuthResult stores a validated result on ctx. Used by middleware.
func WithAuthResult(ctx context.Context, res *AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// AuthResultFromContext returns the result stored by WithAuthResult.
func AuthResultFromContext(ctx context.Context) (*AuthResult, bool) {
	if ctx == nil {
		return nil, false
	}
	res, ok := ctx.Value(authResultContextKey{}).(*AuthResult)
	return res, ok && res != nil
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func deviceFromContext(ctx context.Context) *identity.DeviceInfo {
	if ctx == nil {
		return nil
	}

	device, _ := ctx.Value(deviceInfoContextKey{}).(*identity.DeviceInfo)
	return device
}
