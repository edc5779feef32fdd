package api

import (
	"context"
	"net/http"
	"strconv"
)

// CommentService calls the comment endpoints.
type CommentService struct{ c *Client }

// List returns the comments under postID, oldest first.
func (s CommentService) List(ctx context.Context, postID int64) Result[[]Comment] {
	return call[[]Comment](ctx, s.c, request{method: http.MethodGet, path: postPath(postID) + "/comments"})
}

// Create adds a comment to postID.
func (s CommentService) Create(ctx context.Context, postID int64, in CommentInput) Result[Comment] {
	return call[Comment](ctx, s.c, request{method: http.MethodPost, path: postPath(postID) + "/comments", body: in})
}

// Update edits a comment the caller wrote.
func (s CommentService) Update(ctx context.Context, commentID int64, in CommentInput) Result[Comment] {
	return call[Comment](ctx, s.c, request{method: http.MethodPut, path: commentPath(commentID), body: in})
}

// Delete removes a comment.
func (s CommentService) Delete(ctx context.Context, commentID int64) Result[struct{}] {
	return call[struct{}](ctx, s.c, request{method: http.MethodDelete, path: commentPath(commentID)})
}

func commentPath(id int64) string {
	return "/comments/" + strconv.FormatInt(id, 10)
}
