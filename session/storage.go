package session

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Cookie names used for session material.
const (
	AccessCookie  = "authorization"
	RefreshCookie = "refresh"
)

// Storage reads and writes named session values. Implementations need not be
// safe for concurrent use unless documented.
type Storage interface {
	Get(name string) (string, bool)
	Set(name, value string, maxAge time.Duration)
	Delete(name string)
}

// CookiePolicy scopes the cookies written by [CookieStorage].
type CookiePolicy struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

func (p CookiePolicy) path() string {
	if p.Path == "" {
		return "/"
	}
	return p.Path
}

func (p CookiePolicy) sameSite() http.SameSite {
	if p.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return p.SameSite
}

// CookieStorage is a [Storage] over one request/response pair. Values set or
// deleted during the request are visible to later Gets on the same storage.
type CookieStorage struct {
	w       http.ResponseWriter
	r       *http.Request
	policy  CookiePolicy
	pending map[string]*string
}

// NewCookieStorage binds a storage to w and r.
func NewCookieStorage(w http.ResponseWriter, r *http.Request, policy CookiePolicy) *CookieStorage {
	return &CookieStorage{w: w, r: r, policy: policy}
}

// Get returns the trimmed cookie value when present and non-empty.
func (c *CookieStorage) Get(name string) (string, bool) {
	if v, ok := c.pending[name]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	if c.r == nil {
		return "", false
	}
	cookie, err := c.r.Cookie(name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Set writes an HttpOnly cookie. A non-positive maxAge writes a browser
// session cookie.
func (c *CookieStorage) Set(name, value string, maxAge time.Duration) {
	c.remember(name, &value)
	if c.w == nil {
		return
	}
	cookie := c.cookie(name, strings.TrimSpace(value))
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge / time.Second)
		cookie.Expires = time.Now().Add(maxAge)
	}
	http.SetCookie(c.w, cookie)
}

// Delete expires the cookie under the configured domain and path.
func (c *CookieStorage) Delete(name string) {
	c.remember(name, nil)
	if c.w == nil {
		return
	}
	cookie := c.cookie(name, "")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(c.w, cookie)
}

func (c *CookieStorage) remember(name string, v *string) {
	if c.pending == nil {
		c.pending = make(map[string]*string)
	}
	c.pending[name] = v
}

func (c *CookieStorage) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.policy.path(),
		Domain:   c.policy.Domain,
		HttpOnly: true,
		Secure:   c.policy.Secure,
		SameSite: c.policy.sameSite(),
	}
}

// MemoryStorage is a map-backed [Storage], safe for concurrent use. Expiry is
// not enforced.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns a storage seeded with values.
func NewMemoryStorage(values map[string]string) *MemoryStorage {
	m := &MemoryStorage{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemoryStorage) Get(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	return v, ok && v != ""
}

func (m *MemoryStorage) Set(name, value string, _ time.Duration) {
	m.mu.Lock()
	m.values[name] = value
	m.mu.Unlock()
}

func (m *MemoryStorage) Delete(name string) {
	m.mu.Lock()
	delete(m.values, name)
	m.mu.Unlock()
}
