// Package goAccess provides an in-process access engine: HS256 JWT access and
// refresh tokens signed with rotating keys, server-side sessions with a
// per-user cap, and role-based access control with inheritance and
// attribute conditions.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAccess is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (AuthResult, SessionInfo, MetricsSnapshot, etc.). The token manager, session manager
// and evaluator live in the jwt, session and permission packages; flow orchestration,
// refresh throttling and audit dispatch live under internal/. The httpapi and
// configfile packages, and cmd/goaccessd, are optional outer layers built on the
// same public API.
//
// Authentication itself is out of scope: an identity provider verifies credentials and
// hands the resulting [identity.UserProfile] to [Engine.Login].
//
// # What this package must NOT do
//
//   - Perform network I/O. All state is process-local.
//   - Publish signing secrets; [Engine.JWKS] exposes key metadata only.
//   - Import any sub-package that re-imports goAccess (no import cycles).
//
// # Performance contract
//
// Validate is the hot path. In ModeJWTOnly it touches only the key store and the
// revocation set; ModeStrict adds one session lookup.
package goAccess
