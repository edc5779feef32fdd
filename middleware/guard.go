package middleware

import (
	"context"
	"net"
	"net/http"

	goBlog "github.com/MrEthical07/goBlog"
	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/session"
)

// RequestIDHeader carries the inbound request id forwarded to the backend.
const RequestIDHeader = "X-Request-ID"

type decisionContextKey struct{}

// DecisionFromContext returns the guard decision of an authorized request.
func DecisionFromContext(ctx context.Context) (goBlog.GuardDecision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(goBlog.GuardDecision)
	return d, ok
}

// SessionFromContext returns the session the guard admitted.
func SessionFromContext(ctx context.Context) (*goBlog.Session, bool) {
	d, ok := DecisionFromContext(ctx)
	if !ok || d.Session == nil {
		return nil, false
	}
	return d.Session, true
}

// Guard returns middleware that evaluates opts before the wrapped handler.
// Denied requests get a 303 to the decision's redirect target.
//
//	Docs: docs/middleware.md, docs/guard.md
func Guard(engine *goBlog.Engine, opts goBlog.GuardOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := RequestContext(r)
			storage := session.NewCookieStorage(w, r, engine.CookiePolicy())
			decision := engine.EvaluateGuard(ctx, storage, opts)
			if !decision.Authorized() {
				if decision.RedirectURL == "" {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, decision.RedirectURL, http.StatusSeeOther)
				return
			}

			ctx = api.WithToken(ctx, decision.Session.Token)
			ctx = context.WithValue(ctx, decisionContextKey{}, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestContext returns r's context annotated with the request id, client
// IP and path used by engine audit events.
func RequestContext(r *http.Request) context.Context {
	ctx := goBlog.WithPath(r.Context(), r.URL.Path)
	if id := r.Header.Get(RequestIDHeader); id != "" {
		ctx = goBlog.WithRequestID(ctx, id)
	}
	if ip := clientIP(r.RemoteAddr); ip != "" {
		ctx = goBlog.WithClientIP(ctx, ip)
	}
	return ctx
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
