// Package identity holds the value types shared by the token engine, the session
// manager and the RBAC evaluator: the authenticated user profile, client and
// device descriptors, and the ordered data-classification levels.
//
// # Architecture boundaries
//
// Types here are plain values. This package must NOT import any other goAccess
// package and must NOT perform I/O.
package identity
