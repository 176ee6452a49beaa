package limiters

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestRefreshLimiterDisabledIsNil(t *testing.T) {
	l, err := NewRefreshLimiter(RefreshConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != nil {
		t.Fatalf("expected nil limiter when disabled")
	}
	for i := 0; i < 100; i++ {
		if err := l.Allow("s1"); err != nil {
			t.Fatalf("nil limiter must allow, got %v", err)
		}
	}
	l.Forget("s1")
	if l.Tracked() != 0 {
		t.Fatalf("nil limiter tracks nothing")
	}
}

func TestRefreshLimiterRejectsBadConfig(t *testing.T) {
	if _, err := NewRefreshLimiter(RefreshConfig{Enabled: true, MaxAttempts: 0, Cooldown: time.Minute}); err == nil {
		t.Fatalf("expected error for zero attempts")
	}
	if _, err := NewRefreshLimiter(RefreshConfig{Enabled: true, MaxAttempts: 3}); err == nil {
		t.Fatalf("expected error for zero cooldown")
	}
}

func TestRefreshLimiterBudgetAndReplenish(t *testing.T) {
	clock := &stepClock{t: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)}
	l, err := NewRefreshLimiter(RefreshConfig{Enabled: true, MaxAttempts: 3, Cooldown: 3 * time.Minute, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewRefreshLimiter: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := l.Allow("s1"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := l.Allow("s1"); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("expected ErrRefreshRateLimited, got %v", err)
	}

	// Other sessions have their own bucket.
	if err := l.Allow("s2"); err != nil {
		t.Fatalf("independent session throttled: %v", err)
	}

	// One token is restored per Cooldown/MaxAttempts.
	clock.Advance(time.Minute + time.Second)
	if err := l.Allow("s1"); err != nil {
		t.Fatalf("expected replenished token, got %v", err)
	}
	if err := l.Allow("s1"); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("expected throttle after single replenish, got %v", err)
	}
}

func TestRefreshLimiterForgetResetsBucket(t *testing.T) {
	clock := &stepClock{t: time.Unix(1_700_000_000, 0)}
	l, _ := NewRefreshLimiter(RefreshConfig{Enabled: true, MaxAttempts: 1, Cooldown: time.Hour, Now: clock.Now})

	if err := l.Allow("s1"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := l.Allow("s1"); err == nil {
		t.Fatalf("expected throttle")
	}
	if l.Tracked() != 1 {
		t.Fatalf("expected one tracked bucket, got %d", l.Tracked())
	}
	l.Forget("s1")
	if l.Tracked() != 0 {
		t.Fatalf("expected bucket dropped")
	}
	if err := l.Allow("s1"); err != nil {
		t.Fatalf("fresh bucket should allow: %v", err)
	}
}
