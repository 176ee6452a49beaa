package session

import "errors"

var (
	// ErrSessionNotFound is returned when no record exists for an id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a record was found past its expiry and removed.
	ErrSessionExpired = errors.New("session expired")
	// ErrMissingUserID is returned when a session is created without a user id.
	ErrMissingUserID = errors.New("session user id is required")
)
