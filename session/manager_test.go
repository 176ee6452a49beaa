package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccess/identity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(typ EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T, max int) (*Manager, *fakeClock, *eventLog, *MemoryStore) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	events := &eventLog{}
	store := NewMemoryStore()
	m, err := NewManager(Config{
		TTL:        8 * time.Hour,
		MaxPerUser: max,
		Store:      store,
		Now:        clock.Now,
		OnEvent:    events.record,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, clock, events, store
}

func user(id string) identity.UserProfile {
	return identity.UserProfile{ID: id, Classification: identity.ClassificationRestricted, Provider: "bankid"}
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Fatal("expected zero TTL rejected")
	}
	if _, err := NewManager(Config{TTL: time.Hour, MaxPerUser: -1}); err == nil {
		t.Fatal("expected negative max rejected")
	}
}

func TestCreateAndGetSession(t *testing.T) {
	m, clock, events, _ := newTestManager(t, 5)
	ctx := context.Background()
	client := identity.ClientInfo{IP: "10.0.0.1", UserAgent: "test", DeviceID: "d1"}

	rec, err := m.CreateSession(ctx, user("u1"), client, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.UserID != "u1" || rec.Provider != "bankid" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.ExpiresAt.Equal(clock.Now().Add(8 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", rec.ExpiresAt)
	}
	got, err := m.GetSession(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ClientInfo != client || got.Classification != identity.ClassificationRestricted {
		t.Fatalf("unexpected stored record %+v", got)
	}
	if events.count(EventCreated) != 1 {
		t.Fatal("expected one created event")
	}
	if _, err := m.CreateSession(ctx, identity.UserProfile{}, client, ""); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("expected missing user id, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	m, _, _, _ := newTestManager(t, 5)
	if _, err := m.GetSession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetSessionLazyExpiry(t *testing.T) {
	m, clock, events, store := newTestManager(t, 5)
	ctx := context.Background()
	rec, _ := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, "")

	clock.Advance(8*time.Hour - time.Second)
	if !m.ValidateSession(ctx, rec.ID) {
		t.Fatal("expected session live before expiry")
	}

	clock.Advance(time.Second)
	if _, err := m.GetSession(ctx, rec.ID); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if _, ok, _ := store.Get(ctx, rec.ID); ok {
		t.Fatal("expired session must be removed on read")
	}
	if _, err := m.GetSession(ctx, rec.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found after lazy delete, got %v", err)
	}
	if events.count(EventExpired) != 1 {
		t.Fatalf("expected one expired event, got %d", events.count(EventExpired))
	}
}

// lockCheckingStore counts deletes issued while the manager's write lock is free.
type lockCheckingStore struct {
	*MemoryStore
	m        *Manager
	mu       sync.Mutex
	unlocked []string
}

func (s *lockCheckingStore) Delete(ctx context.Context, id string) (bool, error) {
	if s.m.mu.TryLock() {
		s.m.mu.Unlock()
		s.mu.Lock()
		s.unlocked = append(s.unlocked, id)
		s.mu.Unlock()
	}
	return s.MemoryStore.Delete(ctx, id)
}

func TestSessionDeletesHoldWriteLock(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := &lockCheckingStore{MemoryStore: NewMemoryStore()}
	m, err := NewManager(Config{TTL: time.Hour, MaxPerUser: 2, Store: store, Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	store.m = m
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		rec, err := m.CreateSession(ctx, user(fmt.Sprintf("u%d", i%2)), identity.ClientInfo{}, "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	clock.Advance(time.Hour)

	if _, err := m.GetSession(ctx, ids[0]); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if _, err := m.UpdateSession(ctx, ids[1], Update{}); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected expired on update, got %v", err)
	}
	if _, err := m.CleanupExpiredSessions(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := m.CreateSession(ctx, user("u0"), identity.ClientInfo{}, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.DeleteUserSessions(ctx, "u0"); err != nil {
		t.Fatalf("delete user sessions: %v", err)
	}
	if err := m.DeleteSession(ctx, ids[3]); err != nil {
		t.Fatalf("delete: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.unlocked) != 0 {
		t.Fatalf("deletes issued without the write lock: %v", store.unlocked)
	}
}

func TestConcurrentTouchAndLazyExpiryDoNotResurrect(t *testing.T) {
	m, clock, _, store := newTestManager(t, 0)
	ctx := context.Background()
	rec, err := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clock.Advance(8 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.GetSession(ctx, rec.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = m.TouchSession(ctx, rec.ID)
		}()
	}
	wg.Wait()

	if _, ok, _ := store.Get(ctx, rec.ID); ok {
		t.Fatal("expired session must not be saved back")
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}
}

func TestUpdateSessionMergesAndTouches(t *testing.T) {
	m, clock, _, _ := newTestManager(t, 5)
	ctx := context.Background()
	rec, _ := m.CreateSession(ctx, user("u1"), identity.ClientInfo{IP: "1.1.1.1"}, "")

	clock.Advance(time.Minute)
	secret := identity.ClassificationSecret
	updated, err := m.UpdateSession(ctx, rec.ID, Update{Classification: &secret})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Classification != secret || updated.ClientInfo.IP != "1.1.1.1" {
		t.Fatalf("unexpected merge %+v", updated)
	}
	if !updated.LastAccessedAt.Equal(clock.Now()) || !updated.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("expected last access refreshed only, got %+v", updated)
	}

	clock.Advance(time.Minute)
	touched, err := m.TouchSession(ctx, rec.ID)
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if !touched.LastAccessedAt.Equal(clock.Now()) || touched.Classification != secret {
		t.Fatalf("unexpected touch result %+v", touched)
	}
	if _, err := m.UpdateSession(ctx, "missing", Update{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteSessionIdempotent(t *testing.T) {
	m, _, events, store := newTestManager(t, 5)
	ctx := context.Background()
	rec, _ := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, "")

	if err := m.DeleteSession(ctx, rec.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := m.DeleteSession(ctx, rec.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if events.count(EventDeleted) != 1 {
		t.Fatalf("expected one deleted event, got %d", events.count(EventDeleted))
	}
	ids, _ := store.UserSessionIDs(ctx, "u1")
	if len(ids) != 0 {
		t.Fatalf("expected empty user index, got %v", ids)
	}
}

func TestMaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	m, clock, events, _ := newTestManager(t, 5)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 6; i++ {
		rec, err := m.CreateSession(ctx, user("u1"), identity.ClientInfo{DeviceID: fmt.Sprintf("d%d", i)}, "")
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, rec.ID)
		clock.Advance(time.Second)
	}

	live, err := m.GetUserSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(live) != 5 {
		t.Fatalf("expected 5 live sessions, got %d", len(live))
	}
	if _, err := m.GetSession(ctx, ids[0]); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected first session evicted, got %v", err)
	}
	for _, id := range ids[1:] {
		if !m.ValidateSession(ctx, id) {
			t.Fatalf("expected %s to survive", id)
		}
	}
	if events.count(EventEvicted) != 1 {
		t.Fatalf("expected one eviction event, got %d", events.count(EventEvicted))
	}
}

func TestTouchedSessionSurvivesEviction(t *testing.T) {
	m, clock, _, _ := newTestManager(t, 3)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		rec, _ := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, "")
		ids = append(ids, rec.ID)
		clock.Advance(time.Second)
	}
	if _, err := m.TouchSession(ctx, ids[0]); err != nil {
		t.Fatalf("touch: %v", err)
	}
	clock.Advance(time.Second)
	if _, err := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !m.ValidateSession(ctx, ids[0]) {
		t.Fatal("recently touched session must survive")
	}
	if m.ValidateSession(ctx, ids[1]) {
		t.Fatal("least recently used session must be evicted")
	}
}

func TestEnforceMaxSessionsTieBreaksByCreationThenID(t *testing.T) {
	m, _, _, _ := newTestManager(t, 0)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, ""); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	before, _ := m.GetUserSessions(ctx, "u1")
	evicted, err := m.EnforceMaxSessions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if len(evicted) != 2 || evicted[0] != before[0].ID || evicted[1] != before[1].ID {
		t.Fatalf("expected lowest ids evicted on full tie, got %v", evicted)
	}
}

func TestEnforceMaxSessionsDropsExpiredFirst(t *testing.T) {
	m, clock, events, _ := newTestManager(t, 0)
	ctx := context.Background()
	old, _ := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, "")
	clock.Advance(7 * time.Hour)
	fresh, _ := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, "")
	clock.Advance(2 * time.Hour)

	evicted, err := m.EnforceMaxSessions(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if len(evicted) != 0 {
		t.Fatalf("expired session must not count as eviction, got %v", evicted)
	}
	if m.ValidateSession(ctx, old.ID) || !m.ValidateSession(ctx, fresh.ID) {
		t.Fatal("expected only the fresh session live")
	}
	if events.count(EventExpired) != 1 {
		t.Fatal("expected expired event for swept session")
	}
}

func TestConcurrentCreateNeverExceedsCap(t *testing.T) {
	m, _, _, _ := newTestManager(t, 5)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, ""); err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	live, _ := m.GetUserSessions(ctx, "u1")
	if len(live) != 5 {
		t.Fatalf("expected exactly 5 live sessions, got %d", len(live))
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	m, clock, events, store := newTestManager(t, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.CreateSession(ctx, user(fmt.Sprintf("u%d", i)), identity.ClientInfo{}, "")
	}
	clock.Advance(4 * time.Hour)
	keep, _ := m.CreateSession(ctx, user("u9"), identity.ClientInfo{}, "")
	clock.Advance(5 * time.Hour)

	n, err := m.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 swept, got %d", n)
	}
	if count, _ := m.Count(ctx); count != 1 {
		t.Fatalf("expected 1 remaining, got %d", count)
	}
	if !m.ValidateSession(ctx, keep.ID) {
		t.Fatal("unexpired session must survive cleanup")
	}
	if store.indexedUsers() != 1 {
		t.Fatalf("expected index to hold one user, got %d", store.indexedUsers())
	}
	if events.count(EventExpired) != 3 {
		t.Fatalf("expected 3 expired events, got %d", events.count(EventExpired))
	}
}

func TestDeleteUserSessions(t *testing.T) {
	m, _, events, _ := newTestManager(t, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, "")
	}
	other, _ := m.CreateSession(ctx, user("u2"), identity.ClientInfo{}, "")

	n, err := m.DeleteUserSessions(ctx, "u1")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 deleted, got %d %v", n, err)
	}
	if live, _ := m.GetUserSessions(ctx, "u1"); len(live) != 0 {
		t.Fatalf("expected no sessions left, got %d", len(live))
	}
	if !m.ValidateSession(ctx, other.ID) {
		t.Fatal("other users must be untouched")
	}
	if events.count(EventDeleted) != 3 {
		t.Fatalf("expected 3 deleted events, got %d", events.count(EventDeleted))
	}
}

func TestRunCleanupStopsOnCancel(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Millisecond, CleanupInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.CreateSession(ctx, user("u1"), identity.ClientInfo{}, "")

	done := make(chan error, 1)
	go func() { done <- m.RunCleanup(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := m.Count(ctx); n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected background sweep")
		}
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
