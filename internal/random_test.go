package internal

import "testing"

func TestNewSessionIDUniqueAndWellFormed(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("new session id: %v", err)
		}
		if len(sid) != 22 {
			t.Fatalf("expected 22 char id, got %q", sid)
		}
		if !IsSessionID(sid) {
			t.Fatalf("generated id %q not recognised", sid)
		}
		if _, dup := seen[sid]; dup {
			t.Fatalf("duplicate session id %s", sid)
		}
		seen[sid] = struct{}{}
	}
}

func TestIsSessionIDRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "c2hvcnQ", "not base64!", "AAAAAAAAAAAAAAAAAAAAAAAA"} {
		if IsSessionID(s) {
			t.Fatalf("expected %q rejected", s)
		}
	}
}

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 32 || string(a) == string(b) {
		t.Fatal("expected two distinct 32-byte values")
	}
}
