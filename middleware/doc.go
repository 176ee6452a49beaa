// Package middleware exposes HTTP middleware adapters for JWT-only and strict
// validation plus RBAC enforcement built on top of goAccess.Engine.
//
// # Guards
//
//   - [Guard]: validates with an explicit route mode (ModeInherit uses the engine default).
//   - [RequireJWTOnly]: stateless JWT verification, no session lookup.
//   - [RequireStrict]: JWT plus live-session verification.
//   - [RequirePermission]: RBAC decision for a fixed resource and action.
//
// Each guard reads the Authorization header, forwards client IP, user agent and
// the X-Device-* headers to the engine, and stores the validated
// [goAccess.AuthResult] in the request context.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Make authorization decisions itself; Engine.Evaluate decides.
package middleware
