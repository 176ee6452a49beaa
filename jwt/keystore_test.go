package jwt

import (
	"testing"
	"time"
)

func TestKeyStoreLookupAndPrune(t *testing.T) {
	clock := newFakeClock()
	s := NewKeyStore(clock.Now)
	now := clock.Now()

	s.Insert(SigningKey{KID: "a", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}, true)
	s.Insert(SigningKey{KID: "b", CreatedAt: now.Add(time.Minute), ExpiresAt: now.Add(3 * time.Hour)}, false)

	if k, ok := s.Current(); !ok || k.KID != "a" {
		t.Fatalf("expected current a, got %+v %v", k, ok)
	}
	if k, ok := s.Longest(); !ok || k.KID != "b" {
		t.Fatalf("expected longest b, got %+v", k)
	}
	if active := s.Active(); len(active) != 2 || active[0].KID != "a" {
		t.Fatalf("expected ordered active keys, got %+v", active)
	}

	clock.Advance(2 * time.Hour)
	if _, ok := s.Get("a"); ok {
		t.Fatal("expired key must not be returned")
	}
	if _, ok := s.Current(); ok {
		t.Fatal("expired current key must not be returned")
	}
	if s.Len() != 2 {
		t.Fatal("expired key must remain until pruned")
	}
	removed := s.Prune()
	if len(removed) != 1 || removed[0] != "a" {
		t.Fatalf("expected a pruned, got %v", removed)
	}
	if _, ok := s.Get("b"); !ok {
		t.Fatal("active key must survive prune")
	}
}

func TestKeyStoreNeverExpiringKeyOutlivesAll(t *testing.T) {
	clock := newFakeClock()
	s := NewKeyStore(clock.Now)
	now := clock.Now()
	s.Insert(SigningKey{KID: "timed", CreatedAt: now, ExpiresAt: now.Add(100 * time.Hour)}, true)
	s.Insert(SigningKey{KID: "forever", CreatedAt: now}, false)
	if k, _ := s.Longest(); k.KID != "forever" {
		t.Fatalf("expected never-expiring key, got %s", k.KID)
	}
	clock.Advance(1000 * time.Hour)
	if removed := s.Prune(); len(removed) != 1 {
		t.Fatalf("expected one pruned key, got %v", removed)
	}
	if _, ok := s.Get("forever"); !ok {
		t.Fatal("never-expiring key must survive")
	}
}
