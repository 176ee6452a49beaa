// Package session manages the lifecycle of authenticated sessions: creation,
// lazy expiry on read, partial updates, per-user concurrency limits with LRU
// eviction, and periodic sweeping of expired records.
//
// # Storage
//
// [MemoryStore] keeps records in a map plus a per-user index under one lock, so
// the two always agree. Other backends can satisfy [Store].
//
// # Architecture boundaries
//
// This package owns the [Manager] and its [Store]. It does NOT interpret tokens
// or evaluate permissions; those belong to the jwt and permission packages.
//
// # What this package must NOT do
//
//   - Import goAccess, jwt, or permission (no upward imports).
//   - Return live references to stored records.
package session
