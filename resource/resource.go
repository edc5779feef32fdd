package resource

import (
	"context"

	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/internal/logging"
	"github.com/MrEthical07/goBlog/query"
)

// Resources owns the service client and cache shared by every viewer.
type Resources struct {
	api    *api.Client
	cache  *query.Client
	logger logging.Logger
}

// New returns the resource layer over apiClient and cache. A nil logger
// discards.
func New(apiClient *api.Client, cache *query.Client, logger logging.Logger) *Resources {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resources{api: apiClient, cache: cache, logger: logger}
}

// Cache returns the shared query cache.
func (r *Resources) Cache() *query.Client { return r.cache }

// API returns the backend client.
func (r *Resources) API() *api.Client { return r.api }

// As returns a scope acting for viewer. The empty viewer is anonymous.
func (r *Resources) As(viewer string) Scope {
	return Scope{r: r, viewer: viewer}
}

// Scope serves one viewer.
type Scope struct {
	r      *Resources
	viewer string
}

// Viewer returns the subject this scope acts for.
func (s Scope) Viewer() string { return s.viewer }

// fetch reads key through the cache.
func fetch[T any](ctx context.Context, c *query.Client, key query.Key, load func(context.Context) api.Result[T]) (T, error) {
	return query.Fetch(ctx, c, key, replay(ctx, load))
}

// refetch loads key from the backend even when the cached value is fresh.
func refetch[T any](ctx context.Context, c *query.Client, key query.Key, load func(context.Context) api.Result[T]) (T, error) {
	return query.Refetch(ctx, c, key, replay(ctx, load))
}

// replay binds load to the caller's token, so a refetch triggered by
// another request still loads this viewer's view.
func replay[T any](ctx context.Context, load func(context.Context) api.Result[T]) func(context.Context) (T, error) {
	token, _ := api.TokenFromContext(ctx)
	return func(fctx context.Context) (T, error) {
		if token != "" {
			fctx = api.WithToken(fctx, token)
		}
		return load(fctx).Unwrap()
	}
}
