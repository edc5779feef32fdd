package goBlog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goBlog/api"
	internalaudit "github.com/MrEthical07/goBlog/internal/audit"
	"github.com/MrEthical07/goBlog/internal/logging"
	"github.com/MrEthical07/goBlog/internal/rate"
	"github.com/MrEthical07/goBlog/jwt"
	"github.com/MrEthical07/goBlog/query"
	"github.com/MrEthical07/goBlog/resource"
	"github.com/MrEthical07/goBlog/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
//
//	Docs: docs/engine.md
type Builder struct {
	config Config
	redis  redis.UniversalClient

	logger     logging.Logger
	auditSink  AuditSink
	httpClient *http.Client
	cache      *query.Client
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing revocations and refresh hand-off.
// It is required while Session.RevocationEnabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger. The default discards.
func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithHTTPClient overrides the client used for backend calls.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithQueryClient injects the shared cache. By default Build creates one
// from Config.Cache.
func (b *Builder) WithQueryClient(c *query.Client) *Builder {
	b.cache = c
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// withClock is used by tests that need deterministic expiry.
func (b *Builder) withClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires every component. Missing
// secret material fails here, never at request time.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Session.RevocationEnabled && b.redis == nil {
		return nil, ErrRedisRequired
	}

	jwtManager, err := jwt.NewManager(cfg.JWT.managerConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	apiClient, err := api.NewClient(api.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Prefix:     cfg.Backend.Prefix,
		Timeout:    cfg.Backend.Timeout,
		HTTPClient: b.httpClient,
		Logger:     logger.With("component", "api"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cache := b.cache
	if cache == nil {
		cache = query.NewClient(
			query.WithStaleTime(cfg.Cache.StaleTime),
			query.WithGCTime(cfg.Cache.GCTime),
			query.WithFetchTimeout(cfg.Backend.Timeout),
			query.WithLogger(logger.With("component", "query")),
		)
	}

	var (
		store   *session.Store
		limiter *rate.Limiter
	)
	if b.redis != nil {
		store = session.NewStore(b.redis, cfg.Session.RedisPrefix)
		if cfg.Session.RefreshThrottle {
			limiter = rate.New(b.redis, rate.Config{
				Prefix:      cfg.Session.RedisPrefix,
				MaxAttempts: cfg.Session.MaxRefreshAttempts,
				Window:      cfg.Session.RefreshThrottleWindow,
			})
		}
	}

	e := &Engine{
		config:    cfg,
		jwt:       jwtManager,
		store:     store,
		limiter:   limiter,
		api:       apiClient,
		cache:     cache,
		resources: resource.New(apiClient, cache, logger.With("component", "resource")),
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		now:       now,
	}

	if cfg.Audit.Enabled {
		e.audit = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:      true,
			BufferSize:   cfg.Audit.BufferSize,
			DropIfFull:   cfg.Audit.DropIfFull,
			Critical:     criticalAuditEvents,
			CriticalWait: cfg.Audit.CriticalWait,
		}, b.auditSink)
	}

	for _, w := range cfg.Lint() {
		if w.Severity == LintWarn {
			logger.Warn(context.Background(), "goblog: config lint", "code", w.Code, "message", w.Message)
		}
	}

	b.built = true
	return e, nil
}
