package goAccess

import (
	"time"

	"github.com/MrEthical07/goAccess/identity"
)

// AuthResult is returned by [Engine.Validate]. It carries the identity and
// grants asserted by a verified access token.
type AuthResult struct {
	UserID    string
	SessionID string
	TokenID   string

	Roles          []string
	Permissions    []string
	Classification identity.Classification

	ExpiresAt time.Time
	// Mode is the validation mode that produced this result.
	Mode ValidationMode
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime.
	ExpiresIn time.Duration
}

// RefreshResult is returned by [Engine.Refresh]. The refresh token is not
// rotated; callers keep using the one they presented.
type RefreshResult struct {
	SessionID   string
	AccessToken string
	ExpiresIn   time.Duration
}

// AccessRequest describes what a validated caller wants to do. The caller's
// roles, permissions and classification come from the token.
type AccessRequest struct {
	Resource      string
	Action        string
	ResourceOwner string
	Location      string
	Attributes    map[string]string
	// Time is evaluated by time conditions. Zero means now.
	Time time.Time
}

// SessionInfo is the safe introspection view for a session.
// It intentionally excludes token material.
type SessionInfo struct {
	SessionID      string
	UserID         string
	Provider       string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
	IP             string
	UserAgent      string
	DeviceID       string
	Platform       string
	Classification identity.Classification
}

// Introspection is an RFC 7662 style view of a token. An inactive token
// carries no other fields.
type Introspection struct {
	Active         bool                    `json:"active"`
	Subject        string                  `json:"sub,omitempty"`
	SessionID      string                  `json:"sid,omitempty"`
	TokenID        string                  `json:"jti,omitempty"`
	TokenUse       string                  `json:"token_use,omitempty"`
	Issuer         string                  `json:"iss,omitempty"`
	Audience       []string                `json:"aud,omitempty"`
	KID            string                  `json:"kid,omitempty"`
	Roles          []string                `json:"roles,omitempty"`
	Permissions    []string                `json:"permissions,omitempty"`
	Classification identity.Classification `json:"classification,omitempty"`
	IssuedAt       int64                   `json:"iat,omitempty"`
	ExpiresAt      int64                   `json:"exp,omitempty"`
}
