package api

import (
	"context"
	"net/http"
)

// LikeService toggles likes on posts.
type LikeService struct{ c *Client }

// Like and Unlike return the post's like state after the change.
func (s LikeService) Like(ctx context.Context, postID int64) Result[LikeStatus] {
	return call[LikeStatus](ctx, s.c, request{method: http.MethodPost, path: postPath(postID) + "/likes"})
}

func (s LikeService) Unlike(ctx context.Context, postID int64) Result[LikeStatus] {
	return call[LikeStatus](ctx, s.c, request{method: http.MethodDelete, path: postPath(postID) + "/likes"})
}
