package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// UserService calls the user and my-page endpoints.
type UserService struct{ c *Client }

// Profile returns the signed-in user's profile.
func (s UserService) Profile(ctx context.Context) Result[Profile] {
	return call[Profile](ctx, s.c, request{method: http.MethodGet, path: "/users/me"})
}

// UpdateProfile changes the caller's editable profile fields.
func (s UserService) UpdateProfile(ctx context.Context, in ProfileUpdate) Result[Profile] {
	return call[Profile](ctx, s.c, request{method: http.MethodPatch, path: "/users/me", body: in})
}

// CompleteRegistration submits the profile of a pending account.
func (s UserService) CompleteRegistration(ctx context.Context, in Registration) Result[Profile] {
	return call[Profile](ctx, s.c, request{method: http.MethodPost, path: "/users/me/registration", body: in})
}

// Posts lists the posts written by userID.
func (s UserService) Posts(ctx context.Context, userID int64, page int) Result[PostPage] {
	return call[PostPage](ctx, s.c, request{
		method: http.MethodGet,
		path:   "/users/" + strconv.FormatInt(userID, 10) + "/posts",
		query:  pageQuery(page),
	})
}

// LikedPosts lists the posts the signed-in user liked.
func (s UserService) LikedPosts(ctx context.Context, page int) Result[PostPage] {
	return call[PostPage](ctx, s.c, request{method: http.MethodGet, path: "/users/me/likes", query: pageQuery(page)})
}

func pageQuery(page int) url.Values {
	return url.Values{"page": {strconv.Itoa(page)}}
}
