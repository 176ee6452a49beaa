// Package jwt issues and verifies HS256 access and refresh tokens, rotates the
// symmetric signing keys that sign them, and keeps the process-local revocation
// set and device-binding registry consulted during validation.
//
// # Architecture boundaries
//
// The Manager exclusively owns its KeyStore, revocation list and binding
// registry. Session liveness and RBAC decisions are layered on top by the root
// goAccess package.
//
// # What this package must NOT do
//
//   - Persist keys or revocations outside the process.
//   - Make trust decisions from DecodeToken output.
//   - Expose key secret material through JWKS.
package jwt
