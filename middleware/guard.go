package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/identity"
)

// Device headers read by the guards. A request without HeaderDeviceID carries
// no device and skips the binding check.
const (
	HeaderDeviceID          = "X-Device-ID"
	HeaderDeviceFingerprint = "X-Device-Fingerprint"
	HeaderDevicePlatform    = "X-Device-Platform"
	HeaderDeviceBindingType = "X-Device-Binding-Type"
)

// AuthResultFromContext returns the result stored by a guard.
func AuthResultFromContext(ctx context.Context) (*goAccess.AuthResult, bool) {
	return goAccess.AuthResultFromContext(ctx)
}

// Guard validates the bearer token with routeMode and rejects the request
// with 401 on any failure.
func Guard(engine *goAccess.Engine, routeMode goAccess.RouteMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			ctx := RequestContext(r)
			res, err := engine.Validate(ctx, token, routeMode)
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(goAccess.WithAuthResult(ctx, res)))
		})
	}
}

// RequestContext returns r's context carrying the client IP, user agent and
// device headers the engine reads for audit and device binding.
func RequestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = goAccess.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = goAccess.WithUserAgent(ctx, ua)
	}
	if device := DeviceFromRequest(r); device != nil {
		ctx = goAccess.WithDeviceInfo(ctx, device)
	}
	return ctx
}

// DeviceFromRequest builds a DeviceInfo from the X-Device-* headers.
func DeviceFromRequest(r *http.Request) *identity.DeviceInfo {
	id := strings.TrimSpace(r.Header.Get(HeaderDeviceID))
	if id == "" {
		return nil
	}
	return &identity.DeviceInfo{
		DeviceID:    id,
		Fingerprint: strings.TrimSpace(r.Header.Get(HeaderDeviceFingerprint)),
		Platform:    strings.TrimSpace(r.Header.Get(HeaderDevicePlatform)),
		BindingType: strings.TrimSpace(r.Header.Get(HeaderDeviceBindingType)),
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
