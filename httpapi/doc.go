// Package httpapi exposes a goAccess engine over HTTP with a chi router.
//
// Public routes publish the JWKS and operate on tokens the client already
// holds (refresh, revoke, introspect). Routes under /v1/authorize and
// /v1/sessions run behind [middleware.Guard]. POST /v1/login is mounted only
// when a provider key is configured; it is the hand-off point for an identity
// provider that has already verified the user.
//
// Error bodies never distinguish signature, key and claim failures; every
// rejected token is reported as invalid_token or invalid_grant.
package httpapi
