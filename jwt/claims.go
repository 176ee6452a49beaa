package jwt

import (
	"github.com/MrEthical07/goAccess/identity"
	"github.com/golang-jwt/jwt/v5"
)

// Token use values carried in the token_use claim.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// DeviceBinding ties a token to the device it was issued to.
type DeviceBinding struct {
	DeviceID    string `json:"deviceId"`
	Fingerprint string `json:"fingerprint"`
	Platform    string `json:"platform,omitempty"`
	BindingType string `json:"bindingType,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// Claims is the payload of every token issued by the Manager. Claims are never
// mutated after issuance; a refresh produces a new token.
type Claims struct {
	SessionID      string                  `json:"sessionId,omitempty"`
	Roles          []string                `json:"roles,omitempty"`
	Permissions    []string                `json:"permissions,omitempty"`
	Classification identity.Classification `json:"classification,omitempty"`
	KID            string                  `json:"kid,omitempty"`
	TokenUse       string                  `json:"token_use,omitempty"`
	DeviceBinding  *DeviceBinding          `json:"deviceBinding,omitempty"`
	BindingHash    string                  `json:"bindingHash,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool {
	return c.TokenUse == TokenUseRefresh
}

func (c *Claims) hasRequired() bool {
	return c.Subject != "" && c.SessionID != "" && c.Classification != ""
}
