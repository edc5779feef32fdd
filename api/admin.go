package api

import (
	"context"
	"net/http"
	"strconv"
)

// AdminService covers account approval. Every call requires an admin token.
type AdminService struct{ c *Client }

// PendingUsers lists users awaiting approval.
func (s AdminService) PendingUsers(ctx context.Context) Result[[]PendingUser] {
	return call[[]PendingUser](ctx, s.c, request{method: http.MethodGet, path: "/admin/users/pending"})
}

// Approve admits a pending user.
func (s AdminService) Approve(ctx context.Context, userID int64) Result[struct{}] {
	return call[struct{}](ctx, s.c, request{method: http.MethodPost, path: adminUserPath(userID) + "/approve"})
}

// Reject declines a pending user.
func (s AdminService) Reject(ctx context.Context, userID int64) Result[struct{}] {
	return call[struct{}](ctx, s.c, request{method: http.MethodPost, path: adminUserPath(userID) + "/reject"})
}

func adminUserPath(id int64) string {
	return "/admin/users/" + strconv.FormatInt(id, 10)
}
