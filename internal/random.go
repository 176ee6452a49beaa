package internal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionIDBytes gives 128 bits of entropy, 22 base64url characters.
const sessionIDBytes = 16

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// NewSessionID returns an unguessable, URL-safe session identifier.
func NewSessionID() (string, error) {
	b, err := RandomBytes(sessionIDBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// IsSessionID reports whether s has the shape produced by NewSessionID.
func IsSessionID(s string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil && len(raw) == sessionIDBytes
}
