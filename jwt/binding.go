package jwt

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"io"
	"time"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/internal"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/hkdf"
)

const bindingKeyInfo = "goaccess/device-binding/v1"

// deriveBindingKey expands secret into the HMAC key used for binding hashes.
// An empty secret yields a random per-process key, which invalidates bindings
// across restarts.
func deriveBindingKey(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		var err error
		if secret, err = internal.RandomBytes(32); err != nil {
			return nil, err
		}
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, []byte(bindingKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// bindingHash computes base64url(HMAC-SHA256(key, deviceID || fingerprint || sessionID)).
// Fields are NUL-separated so shifting bytes between them changes the digest.
func bindingHash(key []byte, deviceID, fingerprint, sessionID string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(deviceID))
	mac.Write([]byte{0})
	mac.Write([]byte(fingerprint))
	mac.Write([]byte{0})
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func newDeviceBinding(device *identity.DeviceInfo, now time.Time) *DeviceBinding {
	return &DeviceBinding{
		DeviceID:    device.DeviceID,
		Fingerprint: device.Fingerprint,
		Platform:    device.Platform,
		BindingType: device.BindingType,
		CreatedAt:   now.Unix(),
	}
}

// checkBinding compares a presented device against the binding carried by claims.
func checkBinding(key []byte, claims *Claims, device *identity.DeviceInfo) error {
	b := claims.DeviceBinding
	if subtle.ConstantTimeCompare([]byte(b.DeviceID), []byte(device.DeviceID)) != 1 {
		return ErrDeviceIDMismatch
	}
	if subtle.ConstantTimeCompare([]byte(b.Fingerprint), []byte(device.Fingerprint)) != 1 {
		return ErrFingerprintMismatch
	}
	want := bindingHash(key, device.DeviceID, device.Fingerprint, claims.SessionID)
	if subtle.ConstantTimeCompare([]byte(want), []byte(claims.BindingHash)) != 1 {
		return ErrBindingHashMismatch
	}
	return nil
}

// BindingRegistry indexes issued device bindings by jti. Entries expire with
// the token that carries them.
type BindingRegistry struct {
	c *gocache.Cache
}

// NewBindingRegistry creates an empty registry.
func NewBindingRegistry() *BindingRegistry {
	return &BindingRegistry{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

// Put records b for jti until ttl elapses. A non-positive ttl keeps the entry
// until it is deleted.
func (r *BindingRegistry) Put(jti string, b DeviceBinding, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	r.c.Set(jti, b, ttl)
}

// Get returns the binding recorded for jti.
func (r *BindingRegistry) Get(jti string) (DeviceBinding, bool) {
	v, ok := r.c.Get(jti)
	if !ok {
		return DeviceBinding{}, false
	}
	b, ok := v.(DeviceBinding)
	return b, ok
}

// Delete removes the binding recorded for jti, if any.
func (r *BindingRegistry) Delete(jti string) {
	r.c.Delete(jti)
}

// Len returns the number of tracked bindings.
func (r *BindingRegistry) Len() int {
	return r.c.ItemCount()
}
