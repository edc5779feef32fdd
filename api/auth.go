package api

import (
	"context"
	"net/http"
)

// AuthService covers the session endpoints.
type AuthService struct{ c *Client }

// Role returns the caller's role. A 401 is reported as [FailureUnauthorized];
// callers treat it as "no role".
func (s AuthService) Role(ctx context.Context) Result[Role] {
	r := call[roleBody](ctx, s.c, request{method: http.MethodGet, path: "/auth/role"})
	if !r.OK() {
		return fail[Role](r.Err)
	}
	return ok(r.Value.Role)
}

// Refresh exchanges refreshToken for a new pair.
func (s AuthService) Refresh(ctx context.Context, refreshToken string) Result[TokenPair] {
	r := call[TokenPair](ctx, s.c, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refreshToken": refreshToken},
	})
	if r.OK() && r.Value.AccessToken == "" {
		return fail[TokenPair](&Error{Failure: FailureDecode, Message: "refresh response without access token"})
	}
	return r
}

// Logout invalidates the caller's session on the backend.
func (s AuthService) Logout(ctx context.Context) Result[struct{}] {
	return call[struct{}](ctx, s.c, request{method: http.MethodPost, path: "/auth/logout"})
}
