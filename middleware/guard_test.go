package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/permission"
)

func newMiddlewareEngine(t *testing.T, bind bool) *goAccess.Engine {
	t.Helper()
	cfg := goAccess.DefaultConfig()
	cfg.Token.TokenBindingEnabled = bind
	cfg.Token.BindingSecret = []byte("middleware-binding-secret")
	engine, err := goAccess.New().
		WithConfig(cfg).
		WithPermissions([]permission.Permission{
			{ID: "documents.read", Resource: "documents:*", Action: "read"},
			{
				ID:         "documents.write",
				Resource:   "documents:*",
				Action:     "write",
				Conditions: []permission.Condition{permission.OwnershipCondition{Operator: permission.OpEquals}},
			},
		}).
		WithRoles([]permission.Role{{ID: "editor", Permissions: []string{"documents.read", "documents.write"}}}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func login(t *testing.T, engine *goAccess.Engine, device *identity.DeviceInfo) *goAccess.LoginResult {
	t.Helper()
	res, err := engine.Login(context.Background(), identity.UserProfile{ID: "alice", Roles: []string{"editor"}}, identity.ClientInfo{}, device)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return res
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok || res.UserID != "alice" {
			t.Errorf("expected auth result for alice, got %+v", res)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestGuardAcceptsBearerToken(t *testing.T) {
	engine := newMiddlewareEngine(t, false)
	res := login(t, engine, nil)

	h := Guard(engine, goAccess.ModeInherit)(okHandler(t))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+res.AccessToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestGuardRejectsMissingOrBadToken(t *testing.T) {
	engine := newMiddlewareEngine(t, false)
	h := RequireJWTOnly(engine)(okHandler(t))

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("header %q: expected WWW-Authenticate challenge", header)
		}
	}
}

func TestRequireStrictRejectsLoggedOutSession(t *testing.T) {
	engine := newMiddlewareEngine(t, false)
	res := login(t, engine, nil)
	if err := engine.Logout(context.Background(), res.SessionID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	for name, guard := range map[string]func(http.Handler) http.Handler{
		"strict":   RequireStrict(engine),
		"jwt_only": RequireJWTOnly(engine),
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+res.AccessToken)
		rec := httptest.NewRecorder()
		guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(rec, req)

		want := http.StatusNoContent
		if name == "strict" {
			want = http.StatusUnauthorized
		}
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", name, want, rec.Code)
		}
	}
}

func TestGuardForwardsDeviceHeaders(t *testing.T) {
	engine := newMiddlewareEngine(t, true)
	device := &identity.DeviceInfo{DeviceID: "d1", Fingerprint: "fp1"}
	res := login(t, engine, device)

	h := Guard(engine, goAccess.ModeInherit)(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	req.Header.Set(HeaderDeviceID, "d1")
	req.Header.Set(HeaderDeviceFingerprint, "fp1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("matching device: expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	req.Header.Set(HeaderDeviceID, "d2")
	req.Header.Set(HeaderDeviceFingerprint, "fp1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign device: expected 401, got %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	engine := newMiddlewareEngine(t, false)
	res := login(t, engine, nil)

	owner := func(r *http.Request) string { return r.URL.Query().Get("owner") }
	h := Guard(engine, goAccess.ModeInherit)(
		RequirePermission(engine, "documents:1", "write", owner)(okHandler(t)),
	)

	tests := map[string]int{
		"/?owner=alice": http.StatusNoContent,
		"/?owner=bob":   http.StatusForbidden,
	}
	for target, want := range tests {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		req.Header.Set("Authorization", "Bearer "+res.AccessToken)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", target, want, rec.Code)
		}
	}

	// Without a guard there is no caller.
	rec := httptest.NewRecorder()
	RequirePermission(engine, "documents:1", "read", nil)(okHandler(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without guard, got %d", rec.Code)
	}
}

func TestDeviceFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if DeviceFromRequest(req) != nil {
		t.Fatal("expected nil device without headers")
	}
	req.Header.Set(HeaderDeviceID, " d1 ")
	req.Header.Set(HeaderDevicePlatform, "ios")
	d := DeviceFromRequest(req)
	if d == nil || d.DeviceID != "d1" || d.Platform != "ios" {
		t.Fatalf("unexpected device %+v", d)
	}
}
