package limiters

import (
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ErrRefreshRateLimited is returned when a session exceeds its refresh budget.
var ErrRefreshRateLimited = errors.New("refresh rate limited")

// RefreshConfig sets the per-session refresh budget: MaxAttempts refreshes,
// replenished evenly over Cooldown.
type RefreshConfig struct {
	Enabled     bool
	MaxAttempts int
	Cooldown    time.Duration
	Now         func() time.Time
}

// RefreshLimiter keeps one token bucket per session id. Idle buckets expire
// after two cooldown periods, at which point they would be full anyway.
type RefreshLimiter struct {
	cfg     RefreshConfig
	limit   rate.Limit
	mu      sync.Mutex
	buckets *gocache.Cache
}

// NewRefreshLimiter returns nil when cfg is disabled.
func NewRefreshLimiter(cfg RefreshConfig) (*RefreshLimiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("refresh limiter: MaxAttempts must be > 0")
	}
	if cfg.Cooldown <= 0 {
		return nil, errors.New("refresh limiter: Cooldown must be > 0")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	idle := 2 * cfg.Cooldown
	return &RefreshLimiter{
		cfg:     cfg,
		limit:   rate.Every(cfg.Cooldown / time.Duration(cfg.MaxAttempts)),
		buckets: gocache.New(idle, idle),
	}, nil
}

func (l *RefreshLimiter) bucket(sessionID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.buckets.Get(sessionID); ok {
		lim := v.(*rate.Limiter)
		l.buckets.SetDefault(sessionID, lim)
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.cfg.MaxAttempts)
	l.buckets.SetDefault(sessionID, lim)
	return lim
}

// Allow consumes one refresh for sessionID or returns ErrRefreshRateLimited.
func (l *RefreshLimiter) Allow(sessionID string) error {
	if l == nil {
		return nil
	}
	if !l.bucket(sessionID).AllowN(l.cfg.Now(), 1) {
		return ErrRefreshRateLimited
	}
	return nil
}

// Forget drops the bucket for sessionID, typically on logout.
func (l *RefreshLimiter) Forget(sessionID string) {
	if l == nil {
		return
	}
	l.buckets.Delete(sessionID)
}

// Tracked returns the number of sessions with a live bucket.
func (l *RefreshLimiter) Tracked() int {
	if l == nil {
		return 0
	}
	return l.buckets.ItemCount()
}
