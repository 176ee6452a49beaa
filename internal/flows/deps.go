package flows

import "context"

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login         LoginDeps
	Validate      ValidateDeps
	Refresh       RefreshDeps
	Logout        LogoutDeps
	Introspection IntrospectionDeps
}

// EmitAuditFunc matches the root engine's audit emitter. metadata is only
// invoked when auditing is enabled.
type EmitAuditFunc func(ctx context.Context, eventType string, success bool, userID, sessionID string, err error, metadata func() map[string]string)

func metricInc(fn func(int), id int) {
	if fn != nil {
		fn(id)
	}
}

func emitAudit(fn EmitAuditFunc, ctx context.Context, eventType string, success bool, userID, sessionID string, err error, metadata func() map[string]string) {
	if fn != nil && eventType != "" {
		fn(ctx, eventType, success, userID, sessionID, err, metadata)
	}
}
