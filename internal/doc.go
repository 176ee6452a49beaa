// Package internal contains helpers that are private to goAccess, currently
// session id generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: flow orchestrators behind every Engine operation
//   - limiters: per-session refresh throttle
//   - logging: zap logger construction from configuration
//   - security: security posture report
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccess API.
//   - Be imported by any package outside the goAccess module.
package internal
