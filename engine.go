package goBlog

import (
	"context"
	"time"

	"github.com/MrEthical07/goBlog/api"
	internalaudit "github.com/MrEthical07/goBlog/internal/audit"
	"github.com/MrEthical07/goBlog/internal/logging"
	"github.com/MrEthical07/goBlog/internal/rate"
	"github.com/MrEthical07/goBlog/jwt"
	"github.com/MrEthical07/goBlog/query"
	"github.com/MrEthical07/goBlog/resource"
	"github.com/MrEthical07/goBlog/session"
	"golang.org/x/sync/singleflight"
)

// Engine resolves sessions, composes auth state, and evaluates guards over
// one shared query cache. Create it with [New] and [Builder.Build].
//
//	Docs: docs/engine.md
type Engine struct {
	config    Config
	jwt       *jwt.Manager
	store     *session.Store
	api       *api.Client
	cache     *query.Client
	resources *resource.Resources

	// refreshGroup collapses concurrent refreshes of one token.
	refreshGroup singleflight.Group
	limiter      *rate.Limiter

	logger  logging.Logger
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	now     func() time.Time
}

// Close drains pending audit events and closes the audit sink.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	return e.audit.Close()
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks [Engine.AuditDropped] down by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns current counters and histograms. It is safe on a
// nil engine.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, e.now().Sub(start))
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Cache returns the shared query cache.
func (e *Engine) Cache() *query.Client { return e.cache }

// Resources returns the per-resource query and mutation layer.
func (e *Engine) Resources() *resource.Resources { return e.resources }

// API returns the backend client.
func (e *Engine) API() *api.Client { return e.api }

// Scope returns the resource scope for sess. A nil session is anonymous.
func (e *Engine) Scope(sess *Session) resource.Scope {
	if sess == nil {
		return e.resources.As("")
	}
	return e.resources.As(sess.Subject)
}

// CookiePolicy returns the policy session cookies are written with.
func (e *Engine) CookiePolicy() session.CookiePolicy {
	return session.CookiePolicy{
		Domain:   e.config.Cookie.Domain,
		Path:     e.config.Cookie.Path,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
	}
}

// Ping checks the revocation store. It returns nil when none is configured.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.store == nil {
		return nil
	}
	_, err := e.store.Ping(ctx)
	return err
}

// PruneCache drops entries unused for longer than the cache GC time.
func (e *Engine) PruneCache() int {
	return e.cache.Prune()
}

// CacheEntries reports how many entries the shared query cache holds.
func (e *Engine) CacheEntries() int {
	if e == nil || e.cache == nil {
		return 0
	}
	return e.cache.Len()
}
