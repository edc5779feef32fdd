package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	goBlog "github.com/MrEthical07/goBlog"
	"github.com/MrEthical07/goBlog/jwt"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server holds process settings that are not part of the engine.
type Server struct {
	Addr          string `env:"GOBLOG_ADDR"            envDefault:":8080"`
	RedisAddr     string `env:"GOBLOG_REDIS_ADDR"`
	RedisPassword string `env:"GOBLOG_REDIS_PASSWORD"`
	RedisDB       int    `env:"GOBLOG_REDIS_DB"        envDefault:"0"`
	AMQPURL       string `env:"GOBLOG_AMQP_URL"`
	AMQPQueue     string `env:"GOBLOG_AMQP_QUEUE"      envDefault:"goblog.audit"`
	LogLevel      string `env:"GOBLOG_LOG_LEVEL"       envDefault:"info"`
	LogFormat     string `env:"GOBLOG_LOG_FORMAT"      envDefault:"json"`
	// DevRedis starts an in-process Redis when RedisAddr is empty.
	DevRedis bool `env:"GOBLOG_DEV_REDIS"`
}

// engineEnv mirrors goBlog.Config in env-parsable types.
type engineEnv struct {
	SigningMethod  string        `env:"GOBLOG_JWT_SIGNING_METHOD"`
	Secret         string        `env:"GOBLOG_JWT_SECRET"`
	SecretEncoding string        `env:"GOBLOG_JWT_SECRET_ENCODING"`
	PrivateKeyPEM  string        `env:"GOBLOG_JWT_PRIVATE_KEY"`
	PublicKeyPEM   string        `env:"GOBLOG_JWT_PUBLIC_KEY"`
	Issuer         string        `env:"GOBLOG_JWT_ISSUER"`
	Audience       string        `env:"GOBLOG_JWT_AUDIENCE"`
	Leeway         time.Duration `env:"GOBLOG_JWT_LEEWAY"`
	RequireIAT     bool          `env:"GOBLOG_JWT_REQUIRE_IAT"`

	RedisPrefix            string        `env:"GOBLOG_SESSION_REDIS_PREFIX"`
	RefreshWindow          time.Duration `env:"GOBLOG_SESSION_REFRESH_WINDOW"`
	HandoffTTL             time.Duration `env:"GOBLOG_SESSION_HANDOFF_TTL"`
	RevocationEnabled      bool          `env:"GOBLOG_SESSION_REVOCATION"`
	RequireRevocationCheck bool          `env:"GOBLOG_SESSION_REQUIRE_REVOCATION_CHECK"`
	RefreshThrottle        bool          `env:"GOBLOG_SESSION_REFRESH_THROTTLE"`
	MaxRefreshAttempts     int           `env:"GOBLOG_SESSION_MAX_REFRESH_ATTEMPTS"`
	RefreshThrottleWindow  time.Duration `env:"GOBLOG_SESSION_REFRESH_THROTTLE_WINDOW"`

	CookieDomain        string        `env:"GOBLOG_COOKIE_DOMAIN"`
	CookiePath          string        `env:"GOBLOG_COOKIE_PATH"`
	CookieSecure        bool          `env:"GOBLOG_COOKIE_SECURE"`
	CookieSameSite      string        `env:"GOBLOG_COOKIE_SAMESITE"`
	CookieAccessMaxAge  time.Duration `env:"GOBLOG_COOKIE_ACCESS_MAX_AGE"`
	CookieRefreshMaxAge time.Duration `env:"GOBLOG_COOKIE_REFRESH_MAX_AGE"`

	FallbackURL  string `env:"GOBLOG_GUARD_FALLBACK_URL"`
	ForbiddenURL string `env:"GOBLOG_GUARD_FORBIDDEN_URL"`
	HomeURL      string `env:"GOBLOG_GUARD_HOME_URL"`

	BackendBaseURL string        `env:"GOBLOG_BACKEND_BASE_URL"`
	BackendPrefix  string        `env:"GOBLOG_BACKEND_PREFIX"`
	BackendTimeout time.Duration `env:"GOBLOG_BACKEND_TIMEOUT"`

	CacheStaleTime time.Duration `env:"GOBLOG_CACHE_STALE_TIME"`
	CacheGCTime    time.Duration `env:"GOBLOG_CACHE_GC_TIME"`

	AuditEnabled      bool          `env:"GOBLOG_AUDIT_ENABLED"`
	AuditBufferSize   int           `env:"GOBLOG_AUDIT_BUFFER_SIZE"`
	AuditDropIfFull   bool          `env:"GOBLOG_AUDIT_DROP_IF_FULL"`
	AuditCriticalWait time.Duration `env:"GOBLOG_AUDIT_CRITICAL_WAIT"`

	MetricsEnabled    bool `env:"GOBLOG_METRICS_ENABLED"`
	MetricsHistograms bool `env:"GOBLOG_METRICS_LATENCY_HISTOGRAMS"`
}

// LoadDotEnv reads each existing file into the process environment. Missing
// files are skipped and variables already set are never overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load parses the engine configuration from the environment on top of
// [goBlog.DefaultConfig].
func Load() (goBlog.Config, error) {
	raw := fromConfig(goBlog.DefaultConfig())
	if err := env.Parse(&raw); err != nil {
		return goBlog.Config{}, fmt.Errorf("parse env: %w", err)
	}
	return raw.toConfig()
}

// LoadServer parses the process settings.
func LoadServer() (Server, error) {
	var s Server
	if err := env.Parse(&s); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

func fromConfig(c goBlog.Config) engineEnv {
	return engineEnv{
		SigningMethod:  string(c.JWT.SigningMethod),
		Secret:         c.JWT.Secret,
		SecretEncoding: string(c.JWT.SecretEncoding),
		PrivateKeyPEM:  string(c.JWT.PrivateKey),
		PublicKeyPEM:   string(c.JWT.PublicKey),
		Issuer:         c.JWT.Issuer,
		Audience:       c.JWT.Audience,
		Leeway:         c.JWT.Leeway,
		RequireIAT:     c.JWT.RequireIAT,

		RedisPrefix:            c.Session.RedisPrefix,
		RefreshWindow:          c.Session.RefreshWindow,
		HandoffTTL:             c.Session.HandoffTTL,
		RevocationEnabled:      c.Session.RevocationEnabled,
		RequireRevocationCheck: c.Session.RequireRevocationCheck,
		RefreshThrottle:        c.Session.RefreshThrottle,
		MaxRefreshAttempts:     c.Session.MaxRefreshAttempts,
		RefreshThrottleWindow:  c.Session.RefreshThrottleWindow,

		CookieDomain:        c.Cookie.Domain,
		CookiePath:          c.Cookie.Path,
		CookieSecure:        c.Cookie.Secure,
		CookieSameSite:      sameSiteName(c.Cookie.SameSite),
		CookieAccessMaxAge:  c.Cookie.AccessMaxAge,
		CookieRefreshMaxAge: c.Cookie.RefreshMaxAge,

		FallbackURL:  c.Guard.FallbackURL,
		ForbiddenURL: c.Guard.ForbiddenURL,
		HomeURL:      c.Guard.HomeURL,

		BackendBaseURL: c.Backend.BaseURL,
		BackendPrefix:  c.Backend.Prefix,
		BackendTimeout: c.Backend.Timeout,

		CacheStaleTime: c.Cache.StaleTime,
		CacheGCTime:    c.Cache.GCTime,

		AuditEnabled:      c.Audit.Enabled,
		AuditBufferSize:   c.Audit.BufferSize,
		AuditDropIfFull:   c.Audit.DropIfFull,
		AuditCriticalWait: c.Audit.CriticalWait,

		MetricsEnabled:    c.Metrics.Enabled,
		MetricsHistograms: c.Metrics.EnableLatencyHistograms,
	}
}

func (r engineEnv) toConfig() (goBlog.Config, error) {
	sameSite, err := parseSameSite(r.CookieSameSite)
	if err != nil {
		return goBlog.Config{}, err
	}

	cfg := goBlog.Config{
		JWT: goBlog.JWTConfig{
			SigningMethod:  jwt.SigningMethod(strings.ToLower(r.SigningMethod)),
			Secret:         r.Secret,
			SecretEncoding: jwt.SecretEncoding(strings.ToLower(r.SecretEncoding)),
			Issuer:         r.Issuer,
			Audience:       r.Audience,
			Leeway:         r.Leeway,
			RequireIAT:     r.RequireIAT,
		},
		Session: goBlog.SessionConfig{
			RedisPrefix:            r.RedisPrefix,
			RefreshWindow:          r.RefreshWindow,
			HandoffTTL:             r.HandoffTTL,
			RevocationEnabled:      r.RevocationEnabled,
			RequireRevocationCheck: r.RequireRevocationCheck,
			RefreshThrottle:        r.RefreshThrottle,
			MaxRefreshAttempts:     r.MaxRefreshAttempts,
			RefreshThrottleWindow:  r.RefreshThrottleWindow,
		},
		Cookie: goBlog.CookieConfig{
			Domain:        r.CookieDomain,
			Path:          r.CookiePath,
			Secure:        r.CookieSecure,
			SameSite:      sameSite,
			AccessMaxAge:  r.CookieAccessMaxAge,
			RefreshMaxAge: r.CookieRefreshMaxAge,
		},
		Guard: goBlog.GuardConfig{
			FallbackURL:  r.FallbackURL,
			ForbiddenURL: r.ForbiddenURL,
			HomeURL:      r.HomeURL,
		},
		Backend: goBlog.BackendConfig{
			BaseURL: r.BackendBaseURL,
			Prefix:  r.BackendPrefix,
			Timeout: r.BackendTimeout,
		},
		Cache: goBlog.CacheConfig{
			StaleTime: r.CacheStaleTime,
			GCTime:    r.CacheGCTime,
		},
		Audit: goBlog.AuditConfig{
			Enabled:      r.AuditEnabled,
			BufferSize:   r.AuditBufferSize,
			DropIfFull:   r.AuditDropIfFull,
			CriticalWait: r.AuditCriticalWait,
		},
		Metrics: goBlog.MetricsConfig{
			Enabled:                 r.MetricsEnabled,
			EnableLatencyHistograms: r.MetricsHistograms,
		},
	}
	if r.PrivateKeyPEM != "" {
		cfg.JWT.PrivateKey = []byte(r.PrivateKeyPEM)
	}
	if r.PublicKeyPEM != "" {
		cfg.JWT.PublicKey = []byte(r.PublicKeyPEM)
	}
	return cfg, nil
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("GOBLOG_COOKIE_SAMESITE: unsupported value %q", s)
	}
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "lax"
	}
}
