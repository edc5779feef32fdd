package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goBlog "github.com/MrEthical07/goBlog"
	"github.com/MrEthical07/goBlog/internal/logging"
	"github.com/MrEthical07/goBlog/jwt"
	"github.com/MrEthical07/goBlog/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSecret = "goblog-web-test-secret-0123456789abcd"

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls[r.Method+" "+r.URL.Path]++
	b.mu.Unlock()

	authed := strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
	w.Header().Set("Content-Type", "application/json")
	switch r.Method + " " + r.URL.Path {
	case "GET /api/v1/auth/role":
		if !authed {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"role": "USER"})
	case "GET /api/v1/users/me":
		_ = json.NewEncoder(w).Encode(goBlog.Profile{ID: 3, Nickname: "trinity"})
	case "GET /api/v1/posts":
		_ = json.NewEncoder(w).Encode(map[string]any{"posts": []any{}, "page": 0})
	case "POST /api/v1/auth/logout":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestRouter(t *testing.T) (http.Handler, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{calls: make(map[string]int)}
	api := httptest.NewServer(backend)
	t.Cleanup(api.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goBlog.DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Backend.BaseURL = api.URL
	cfg.Backend.Timeout = 2 * time.Second

	engine, err := goBlog.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	return newRouter(engine, logging.Discard()), backend
}

func sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{SigningMethod: jwt.MethodHS256, Secret: testSecret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.CreateSession("3", "", time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: session.AccessCookie, Value: token}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthStateAnonymous(t *testing.T) {
	h, backend := newTestRouter(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/state", nil))

	var got authStateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || got.IsLoggedIn {
		t.Fatalf("expected logged-out state, got %d %+v", rec.Code, got)
	}
	if backend.count("GET /api/v1/auth/role") != 0 {
		t.Fatal("anonymous state must not reach the backend")
	}
}

func TestAuthStateSignedIn(t *testing.T) {
	h, backend := newTestRouter(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/state", nil)
		req.AddCookie(sessionCookie(t))
		rec := serve(h, req)

		var got authStateResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !got.IsLoggedIn || got.Role != goBlog.RoleUser || got.UserProfile == nil || got.UserProfile.Nickname != "trinity" {
			t.Fatalf("unexpected state %+v", got)
		}
	}
	if n := backend.count("GET /api/v1/auth/role"); n != 1 {
		t.Fatalf("expected role to be cached, got %d calls", n)
	}
}

func TestProtectedRouteRedirects(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/me/likes", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?error=authentication_required" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestAdminRouteForbidsUsers(t *testing.T) {
	h, backend := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/pending", nil)
	req.AddCookie(sessionCookie(t))
	rec := serve(h, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/auth/error?error=insufficient_permissions" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if backend.count("GET /api/v1/admin/users/pending") != 0 {
		t.Fatal("forbidden request must not reach admin endpoints")
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	h, backend := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(sessionCookie(t))
	rec := serve(h, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	cleared := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	if !cleared[session.AccessCookie] || !cleared[session.RefreshCookie] {
		t.Fatalf("expected both cookies cleared, got %v", cleared)
	}
	if backend.count("POST /api/v1/auth/logout") != 1 {
		t.Fatal("expected backend logout call")
	}
}

func TestPublicPostList(t *testing.T) {
	h, backend := newTestRouter(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/posts?page=0&category=go", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if backend.count("GET /api/v1/posts") != 1 {
		t.Fatal("expected one backend list call")
	}
}

func TestErrorPageAndMetrics(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/auth/error?error=session_expired", nil))
	if !strings.Contains(rec.Body.String(), "Session expired") {
		t.Fatalf("unexpected error page:\n%s", rec.Body.String())
	}

	serve(h, httptest.NewRequest(http.MethodGet, "/api/me/likes", nil))
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "goblog_guard_unauthenticated_total 1") {
		t.Fatalf("unexpected metrics:\n%s", rec.Body.String())
	}
}
