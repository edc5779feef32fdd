package api

import (
	"context"
	"net/http"
	"strconv"
)

// PostService calls the post endpoints.
type PostService struct{ c *Client }

// List returns one page of posts matching f.
func (s PostService) List(ctx context.Context, f PostFilter) Result[PostPage] {
	return call[PostPage](ctx, s.c, request{method: http.MethodGet, path: "/posts", query: f.values()})
}

// Get returns one post.
func (s PostService) Get(ctx context.Context, id int64) Result[Post] {
	return call[Post](ctx, s.c, request{method: http.MethodGet, path: postPath(id)})
}

// Create publishes a post as the caller.
func (s PostService) Create(ctx context.Context, in PostInput) Result[Post] {
	return call[Post](ctx, s.c, request{method: http.MethodPost, path: "/posts", body: in})
}

// Update replaces title and content of a post.
func (s PostService) Update(ctx context.Context, id int64, in PostInput) Result[Post] {
	return call[Post](ctx, s.c, request{method: http.MethodPut, path: postPath(id), body: in})
}

// Delete removes a post.
func (s PostService) Delete(ctx context.Context, id int64) Result[struct{}] {
	return call[struct{}](ctx, s.c, request{method: http.MethodDelete, path: postPath(id)})
}

func postPath(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10)
}
