package session

import (
	"time"

	"github.com/MrEthical07/goAccess/identity"
)

// Record is one session. Records handed out by the Manager and Store are
// copies; mutating them has no effect on stored state.
type Record struct {
	ID             string
	UserID         string
	Provider       string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
	ClientInfo     identity.ClientInfo
	Classification identity.Classification
}

// ExpiredAt reports whether the record is no longer live at now.
func (r Record) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Update is a partial modification. Nil fields are left unchanged.
type Update struct {
	ClientInfo     *identity.ClientInfo
	Classification *identity.Classification
	ExpiresAt      *time.Time
}

func (u Update) apply(r *Record) {
	if u.ClientInfo != nil {
		r.ClientInfo = *u.ClientInfo
	}
	if u.Classification != nil {
		r.Classification = *u.Classification
	}
	if u.ExpiresAt != nil {
		r.ExpiresAt = *u.ExpiresAt
	}
}

// EventType names a lifecycle transition.
type EventType string

const (
	EventCreated EventType = "session_created"
	EventDeleted EventType = "session_deleted"
	EventExpired EventType = "session_expired"
	EventEvicted EventType = "session_evicted"
)

// Event is emitted after a lifecycle transition has been applied.
type Event struct {
	Type      EventType
	SessionID string
	UserID    string
	At        time.Time
}
