// Package middleware adapts the goBlog route guard to net/http.
//
// # Guards
//
//   - [Guard]: evaluates [goBlog.GuardOptions] for every request.
//   - [RequireAuth]: any signed-in user.
//   - [RequireAdmin]: signed-in users whose backend role is ADMIN.
//
// Each guard reads session cookies through [session.CookieStorage], calls
// Engine.EvaluateGuard, and either redirects to the decision's RedirectURL or
// injects the resolved session into the request context. A refresh performed
// by the guard writes the rotated cookies before the protected handler runs.
//
// [ErrorPage] renders the auth error page for the reason carried in the
// "error" query parameter.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT decide
// who may pass; all decisions are delegated to Engine.EvaluateGuard.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis or the backend.
//   - Render anything but the error page.
package middleware
