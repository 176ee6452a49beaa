package jwt

import (
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccess/identity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig(clock *fakeClock) Config {
	return Config{
		Issuer:         "goaccess-test",
		Audience:       "api",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     24 * time.Hour,
		BindingEnabled: true,
		BindingSecret:  []byte("binding-secret-for-tests"),
		Now:            clock.Now,
	}
}

func newTestManager(t *testing.T, mutate func(*Config)) (*Manager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	cfg := testConfig(clock)
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, clock
}

func testUser() identity.UserProfile {
	return identity.UserProfile{
		ID:             "user-1",
		Email:          "u1@example.com",
		Roles:          []string{"user"},
		Permissions:    []string{"read:documents"},
		Classification: identity.ClassificationRestricted,
	}
}
