package flows

import (
	"context"
	"strconv"
	"strings"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/jwt"
	"github.com/MrEthical07/goAccess/session"
)

// Introspection is the flow-local RFC 7662 style token view. Inactive results
// carry no other fields.
type Introspection struct {
	Active         bool
	Subject        string
	SessionID      string
	TokenID        string
	TokenUse       string
	Issuer         string
	Audience       []string
	KID            string
	Roles          []string
	Permissions    []string
	Classification identity.Classification
	IssuedAt       int64
	ExpiresAt      int64
}

type IntrospectionDeps struct {
	ValidateToken   func(string, *identity.DeviceInfo) jwt.ValidationResult
	ValidateSession func(context.Context, string) bool
	GetUserSessions func(context.Context, string) ([]session.Record, error)
	// CheckSession makes tokens of dead sessions inactive.
	CheckSession bool

	EngineNotReadyErr error
	UserRequiredErr   error
}

// RunIntrospect reports whether token is currently acceptable. Validation
// failures are not errors here; they produce an inactive result.
func RunIntrospect(ctx context.Context, token string, deps IntrospectionDeps) (Introspection, error) {
	if deps.ValidateToken == nil {
		return Introspection{}, deps.EngineNotReadyErr
	}
	res := deps.ValidateToken(token, nil)
	if !res.Valid {
		return Introspection{}, nil
	}
	c := res.Claims
	if deps.CheckSession && deps.ValidateSession != nil && !deps.ValidateSession(ctx, c.SessionID) {
		return Introspection{}, nil
	}

	out := Introspection{
		Active:         true,
		Subject:        c.Subject,
		SessionID:      c.SessionID,
		TokenID:        c.ID,
		TokenUse:       c.TokenUse,
		Issuer:         c.Issuer,
		Audience:       append([]string(nil), c.Audience...),
		KID:            c.KID,
		Roles:          append([]string(nil), c.Roles...),
		Permissions:    append([]string(nil), c.Permissions...),
		Classification: c.Classification,
	}
	if out.TokenUse == "" {
		out.TokenUse = jwt.TokenUseAccess
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Unix()
	}
	return out, nil
}

func RunListSessions(ctx context.Context, userID string, deps IntrospectionDeps) ([]session.Record, error) {
	if deps.GetUserSessions == nil {
		return nil, deps.EngineNotReadyErr
	}
	if strings.TrimSpace(userID) == "" {
		return nil, deps.UserRequiredErr
	}
	return deps.GetUserSessions(ctx, userID)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
