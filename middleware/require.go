package middleware

import (
	"net/http"

	goBlog "github.com/MrEthical07/goBlog"
)

// RequireAuth admits any request with a valid, possibly refreshed, session.
func RequireAuth(engine *goBlog.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goBlog.GuardOptions{})
}

// RequireAdmin additionally checks the backend role and sends non-admins to
// the configured forbidden page.
//
//	Docs: docs/middleware.md, docs/guard.md
func RequireAdmin(engine *goBlog.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goBlog.GuardOptions{RequireAdmin: true})
}
