package goBlog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/jwt"
	"github.com/alicebob/miniredis/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const testSecret = "goblog-engine-test-secret-0123456789"

// testBackend is a minimal REST backend for the auth endpoints.
type testBackend struct {
	mu            sync.Mutex
	role          Role
	roleStatus    int
	profile       Profile
	profileStatus int
	logoutStatus  int
	refreshStatus int
	refreshDelay  time.Duration
	refreshPair   func() api.TokenPair
	calls         map[string]int
}

func newTestBackend() *testBackend {
	return &testBackend{
		role:    RoleUser,
		profile: Profile{ID: 7, Nickname: "neo", Email: "neo@example.com"},
		calls:   make(map[string]int),
	}
}

func (b *testBackend) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *testBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		if r.URL.Path == "/api/v1/auth/refresh" {
			b.mu.Lock()
			b.calls["refresh"]++
			delay, status, pair := b.refreshDelay, b.refreshStatus, b.refreshPair
			b.mu.Unlock()
			time.Sleep(delay)
			if status != 0 {
				writeTestJSON(w, status, map[string]string{"message": "refresh rejected"})
				return
			}
			writeTestJSON(w, http.StatusOK, pair())
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		switch r.URL.Path {
		case "/api/v1/auth/role":
			b.calls["role"]++
			switch {
			case b.roleStatus != 0:
				writeTestJSON(w, b.roleStatus, map[string]string{"message": "role failed"})
			case token == "":
				w.WriteHeader(http.StatusUnauthorized)
			default:
				writeTestJSON(w, http.StatusOK, map[string]Role{"role": b.role})
			}
		case "/api/v1/users/me":
			b.calls["profile"]++
			if b.profileStatus != 0 {
				writeTestJSON(w, b.profileStatus, map[string]string{"message": "profile failed"})
				return
			}
			writeTestJSON(w, http.StatusOK, b.profile)
		case "/api/v1/auth/logout":
			b.calls["logout"]++
			if b.logoutStatus != 0 {
				writeTestJSON(w, b.logoutStatus, map[string]string{"message": "logout failed"})
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.Timeout = 2 * time.Second
	cfg.Cookie.Domain = "blog.example.com"
	return cfg
}

// newTestEngine builds an engine against b and a fresh miniredis.
func newTestEngine(t *testing.T, b *testBackend, mutate func(*Config)) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	return newTestEngineWith(t, b, rdb, mutate), mr
}

func newTestEngineWith(t *testing.T, b *testBackend, rdb redis.UniversalClient, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := testConfig(newBackendServer(t, b))
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// newBackendServer serves b and returns its base URL.
func newBackendServer(t *testing.T, b *testBackend) string {
	t.Helper()
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)
	return srv.URL
}

func issueToken(t *testing.T, e *Engine, subject string, ttl time.Duration) string {
	t.Helper()
	token, err := e.jwt.CreateSession(subject, "ext-"+subject, ttl)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func issueExpiredToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.SessionClaims{
		ExternalID: "ext-" + subject,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   subject,
			ID:        "expired-" + subject,
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	return token
}
