// Package audit implements async event dispatching for security-relevant operations.
//
// # Components
//
//   - [Sink] is the interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event] is the structured audit record.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does not decide which events
// to emit; the Engine does.
//
// It must not import goAccess or any sibling internal package, and performs no
// network I/O beyond what a caller-supplied Sink does.
package audit
