package jwt

import (
	"sort"
	"sync"
	"time"
)

// AlgorithmHS256 is the only signing algorithm issued by the Manager.
const AlgorithmHS256 = "HS256"

// SigningKey is an immutable symmetric signing key. A zero ExpiresAt means the
// key never expires. Callers must treat Secret as read-only.
type SigningKey struct {
	KID       string
	Algorithm string
	Secret    []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ActiveAt reports whether k may still verify tokens at now.
func (k SigningKey) ActiveAt(now time.Time) bool {
	return k.ExpiresAt.IsZero() || now.Before(k.ExpiresAt)
}

// outlives reports whether k stays active longer than other.
func (k SigningKey) outlives(other SigningKey) bool {
	switch {
	case k.ExpiresAt.IsZero() && other.ExpiresAt.IsZero():
		return k.CreatedAt.After(other.CreatedAt)
	case k.ExpiresAt.IsZero():
		return true
	case other.ExpiresAt.IsZero():
		return false
	default:
		return k.ExpiresAt.After(other.ExpiresAt)
	}
}

// KeyStore holds the signing keys of one Manager, keyed by kid. It is safe for
// concurrent use; rotation and request-path verification share its lock.
type KeyStore struct {
	mu      sync.RWMutex
	keys    map[string]SigningKey
	current string
	now     func() time.Time
}

// NewKeyStore creates an empty store. A nil clock defaults to time.Now.
func NewKeyStore(now func() time.Time) *KeyStore {
	if now == nil {
		now = time.Now
	}
	return &KeyStore{keys: make(map[string]SigningKey), now: now}
}

// Insert adds k, replacing any key with the same kid. When makeCurrent is true
// k becomes the key used for new issuance.
func (s *KeyStore) Insert(k SigningKey, makeCurrent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[k.KID] = k
	if makeCurrent {
		s.current = k.KID
	}
}

// Get returns the key named kid if it exists and has not expired.
func (s *KeyStore) Get(kid string) (SigningKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[kid]
	if !ok || !k.ActiveAt(s.now()) {
		return SigningKey{}, false
	}
	return k, true
}

// Current returns the key used for new issuance, if it is still active.
func (s *KeyStore) Current() (SigningKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[s.current]
	if !ok || !k.ActiveAt(s.now()) {
		return SigningKey{}, false
	}
	return k, true
}

// Longest returns the active key with the latest expiry.
func (s *KeyStore) Longest() (SigningKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var (
		best  SigningKey
		found bool
	)
	for _, k := range s.keys {
		if !k.ActiveAt(now) {
			continue
		}
		if !found || k.outlives(best) {
			best, found = k, true
		}
	}
	return best, found
}

// Active lists the unexpired keys ordered by creation time.
func (s *KeyStore) Active() []SigningKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]SigningKey, 0, len(s.keys))
	for _, k := range s.keys {
		if k.ActiveAt(now) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].KID < out[j].KID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Prune drops every expired key and returns the removed kids. Keys inside their
// verification window are never removed.
func (s *KeyStore) Prune() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var removed []string
	for kid, k := range s.keys {
		if k.ActiveAt(now) {
			continue
		}
		delete(s.keys, kid)
		removed = append(removed, kid)
	}
	if _, ok := s.keys[s.current]; !ok {
		s.current = ""
	}
	sort.Strings(removed)
	return removed
}

// Len returns the number of stored keys, expired or not.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
