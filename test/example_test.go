package test

import (
	"context"
	"net/http"

	goBlog "github.com/MrEthical07/goBlog"
	"github.com/MrEthical07/goBlog/middleware"
	"github.com/MrEthical07/goBlog/session"
	"github.com/redis/go-redis/v9"
)

// ExampleNew builds an engine against a REST backend and Redis.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := goBlog.DefaultConfig()
	cfg.JWT.Secret = "replace-with-a-32-byte-or-longer-secret"
	cfg.Backend.BaseURL = "https://api.blog.example.com"

	engine, _ := goBlog.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	_ = engine
}

// ExampleEngine_EvaluateGuard protects an admin view by hand.
func ExampleEngine_EvaluateGuard() {
	var engine *goBlog.Engine
	http.HandleFunc("/admin", func(w http.ResponseWriter, r *http.Request) {
		storage := session.NewCookieStorage(w, r, engine.CookiePolicy())
		d := engine.EvaluateGuard(r.Context(), storage, goBlog.GuardOptions{RequireAdmin: true})
		if !d.Authorized() {
			http.Redirect(w, r, d.RedirectURL, http.StatusSeeOther)
			return
		}
		_, _ = w.Write([]byte("admin"))
	})
}

// ExampleEngine_AuthState reads the composed auth state for a request.
func ExampleEngine_AuthState() {
	var engine *goBlog.Engine
	var r *http.Request

	ctx, sess, err := engine.AuthorizedContext(context.Background(), session.NewCookieStorage(nil, r, engine.CookiePolicy()))
	if err != nil {
		return
	}
	state := engine.AuthState(ctx, sess)
	_ = state.NeedsProfileCompletion
}

// ExampleRequireAdmin mounts the admin guard as middleware.
func ExampleRequireAdmin() {
	var engine *goBlog.Engine
	mux := http.NewServeMux()
	mux.Handle("/admin/", middleware.RequireAdmin(engine)(http.NotFoundHandler()))
}
