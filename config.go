package goBlog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goBlog/jwt"
)

// Config holds every engine setting.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT     JWTConfig
	Session SessionConfig
	Cookie  CookieConfig
	Guard   GuardConfig
	Backend BackendConfig
	Cache   CacheConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects the verification algorithm and its key material.
// SecretEncoding states how Secret is read; it is never guessed.
type JWTConfig struct {
	SigningMethod  jwt.SigningMethod // "hs256" (default) or "ed25519"
	Secret         string
	SecretEncoding jwt.SecretEncoding // "raw" (default), "base64", "base64url"
	PrivateKey     []byte
	PublicKey      []byte
	Issuer         string
	Audience       string
	Leeway         time.Duration
	RequireIAT     bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls expiry handling and the Redis-backed store.
type SessionConfig struct {
	RedisPrefix string
	// RefreshWindow is how close to expiry a token must be before it is
	// refreshed ahead of an authorized call.
	RefreshWindow time.Duration
	// HandoffTTL is how long a refresh result stays claimable by other replicas.
	HandoffTTL             time.Duration
	RevocationEnabled      bool
	RequireRevocationCheck bool
	// RefreshThrottle caps backend refresh exchanges per refresh token to
	// MaxRefreshAttempts per RefreshThrottleWindow. Needs Redis.
	RefreshThrottle       bool
	MaxRefreshAttempts    int
	RefreshThrottleWindow time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig scopes the session cookies.
type CookieConfig struct {
	Domain        string
	Path          string
	Secure        bool
	SameSite      http.SameSite
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig holds redirect targets. All are relative paths.
type GuardConfig struct {
	FallbackURL  string
	ForbiddenURL string
	HomeURL      string
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig points at the REST API.
type BackendConfig struct {
	BaseURL string
	Prefix  string
	Timeout time.Duration
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig tunes the shared query cache. A zero StaleTime keeps entries
// fresh until they are invalidated.
type CacheConfig struct {
	StaleTime time.Duration
	GCTime    time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// CriticalWait is how long revocation and invalid-token events wait for
	// buffer room before being dropped.
	CriticalWait time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a config with every default filled in. Secret
// material and the backend URL are left empty.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod:  jwt.MethodHS256,
			SecretEncoding: jwt.EncodingRaw,
		},
		Session: SessionConfig{
			RedisPrefix:       "gb",
			RefreshWindow:     time.Minute,
			HandoffTTL:        15 * time.Second,
			RevocationEnabled: true,

			RefreshThrottle:       true,
			MaxRefreshAttempts:    10,
			RefreshThrottleWindow: time.Minute,
		},
		Cookie: CookieConfig{
			Path:          "/",
			Secure:        true,
			SameSite:      http.SameSiteLaxMode,
			AccessMaxAge:  time.Hour,
			RefreshMaxAge: 14 * 24 * time.Hour,
		},
		Guard: GuardConfig{
			FallbackURL:  "/login",
			ForbiddenURL: "/auth/error",
			HomeURL:      "/",
		},
		Backend: BackendConfig{
			Prefix:  "/api/v1",
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			GCTime: 5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:      false,
			BufferSize:   1024,
			DropIfFull:   true,
			CriticalWait: 50 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c JWTConfig) managerConfig() jwt.Config {
	return jwt.Config{
		SigningMethod:  c.SigningMethod,
		Secret:         c.Secret,
		SecretEncoding: c.SecretEncoding,
		PrivateKey:     c.PrivateKey,
		PublicKey:      c.PublicKey,
		Issuer:         c.Issuer,
		Audience:       c.Audience,
		Leeway:         c.Leeway,
		RequireIAT:     c.RequireIAT,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting, wrapped in [ErrInvalidConfig].
// Missing secret material is a validation failure.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// JWT
	switch c.JWT.SigningMethod {
	case jwt.MethodHS256:
		if strings.TrimSpace(c.JWT.Secret) == "" {
			return errors.New("hs256 requires Secret")
		}
		if _, err := jwt.DecodeSecret(c.JWT.Secret, c.JWT.SecretEncoding); err != nil {
			return err
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PublicKey) == 0 && len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PublicKey or PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Session
	if c.Session.RefreshWindow < 0 {
		return errors.New("Session RefreshWindow must be >= 0")
	}
	if c.Session.HandoffTTL < time.Second {
		return errors.New("Session HandoffTTL must be >= 1s")
	}
	if c.Session.RevocationEnabled && strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.RequireRevocationCheck && !c.Session.RevocationEnabled {
		return errors.New("Session RequireRevocationCheck requires RevocationEnabled")
	}
	if c.Session.RefreshThrottle {
		if c.Session.MaxRefreshAttempts < 1 {
			return errors.New("Session MaxRefreshAttempts must be >= 1")
		}
		if c.Session.RefreshThrottleWindow < time.Second {
			return errors.New("Session RefreshThrottleWindow must be >= 1s")
		}
	}

	// Cookie
	if c.Cookie.AccessMaxAge <= 0 || c.Cookie.RefreshMaxAge <= 0 {
		return errors.New("Cookie max ages must be > 0")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Guard
	for name, u := range map[string]string{
		"FallbackURL":  c.Guard.FallbackURL,
		"ForbiddenURL": c.Guard.ForbiddenURL,
		"HomeURL":      c.Guard.HomeURL,
	} {
		if !isRelativePath(u) {
			return fmt.Errorf("Guard %s must be a relative path", name)
		}
	}

	// Backend
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("Backend BaseURL is required")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("Backend Timeout must be > 0")
	}

	// Cache
	if c.Cache.StaleTime < 0 || c.Cache.GCTime < 0 {
		return errors.New("Cache durations must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	if c.Audit.CriticalWait < 0 {
		return errors.New("Audit CriticalWait must be >= 0")
	}

	return nil
}

// isRelativePath rejects absolute and protocol-relative URLs so a redirect
// target can never leave the site.
func isRelativePath(u string) bool {
	return strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") && !strings.Contains(u, "\\")
}

/*
====================================
LINT
====================================
*/

// LintSeverity grades a lint warning.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
)

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that validate but are unsafe for production.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.JWT.SigningMethod == jwt.MethodHS256 {
		if key, err := jwt.DecodeSecret(c.JWT.Secret, c.JWT.SecretEncoding); err == nil && len(key) < 32 {
			add("hs256_short_secret", LintWarn, "hs256 secret is shorter than 32 bytes")
		}
	}
	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway above 1m widens the replay window")
	}
	if c.Session.RefreshWindow > 5*time.Minute {
		add("refresh_window_large", LintInfo, "refresh window above 5m refreshes most requests")
	}
	if !c.Session.RevocationEnabled {
		add("revocation_disabled", LintWarn, "logged-out tokens stay valid until expiry")
	}
	if !c.Cookie.Secure {
		add("cookie_insecure", LintWarn, "session cookies are sent over plain HTTP")
	}
	if c.Cookie.Domain == "" {
		add("cookie_domain_empty", LintInfo, "cookies are host-only")
	}
	if c.Cache.StaleTime == 0 {
		add("cache_never_stale", LintInfo, "cached queries stay fresh until invalidated")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "session events are not audited")
	}

	return ws
}
