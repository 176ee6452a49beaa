// Package limiters provides in-process throttles for engine flows.
//
//   - [RefreshLimiter] is a per-session token bucket for refresh-token exchanges.
//
// Limiters are nil-safe: calling any method on a nil receiver allows the request.
// They only count; the engine decides the consequence of a denial.
package limiters
