package jwt

// JWK describes one verification key. For symmetric keys only metadata is
// published; N and E are set for RSA keys only and stay empty here.
type JWK struct {
	KID string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKS is the published key set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

func buildJWKS(keys []SigningKey) JWKS {
	out := JWKS{Keys: make([]JWK, 0, len(keys))}
	for _, k := range keys {
		out.Keys = append(out.Keys, JWK{
			KID: k.KID,
			Kty: "oct",
			Alg: k.Algorithm,
			Use: "sig",
		})
	}
	return out
}
