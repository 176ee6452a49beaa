package middleware

import (
	"net/http"
	"strings"

	goAccess "github.com/MrEthical07/goAccess"
)

// OwnerFunc extracts the owner of the requested resource, if any.
type OwnerFunc func(r *http.Request) string

// RequirePermission must run behind a guard. It evaluates resource and action
// for the authenticated caller and answers 403 when the decision is a denial.
// The request's X-Location header feeds location conditions.
func RequirePermission(engine *goAccess.Engine, resource, action string, owner OwnerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := goAccess.AuthResultFromContext(r.Context())
			if !ok || engine == nil {
				unauthorized(w)
				return
			}

			req := goAccess.AccessRequest{
				Resource: resource,
				Action:   action,
				Location: strings.TrimSpace(r.Header.Get("X-Location")),
			}
			if owner != nil {
				req.ResourceOwner = owner(r)
			}

			decision := engine.Evaluate(r.Context(), caller, req)
			if !decision.Allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
