// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunValidate, RunRefresh, etc.) accepts a typed
// dependency struct of callbacks and returns a result value carrying a failure
// kind the root package maps onto its own sentinels. Flows record metrics and
// audit events through the callbacks they are given.
//
// # Architecture boundaries
//
// Flow functions coordinate the token manager, session manager, refresh
// throttle, audit emitter and metrics. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAccess (to avoid import cycles).
package flows
