package resource

import (
	"context"

	"github.com/MrEthical07/goBlog/api"
)

// PostList reads one page of posts matching f.
func (s Scope) PostList(ctx context.Context, f api.PostFilter) (api.PostPage, error) {
	return fetch(ctx, s.r.cache, withViewer(PostKeys.List(f), s.viewer), func(ctx context.Context) api.Result[api.PostPage] {
		return s.r.api.Posts().List(ctx, f)
	})
}

// Post reads one post by id.
func (s Scope) Post(ctx context.Context, id int64) (api.Post, error) {
	return fetch(ctx, s.r.cache, withViewer(PostKeys.Detail(id), s.viewer), func(ctx context.Context) api.Result[api.Post] {
		return s.r.api.Posts().Get(ctx, id)
	})
}

// Comments reads the comments under postID.
func (s Scope) Comments(ctx context.Context, postID int64) ([]api.Comment, error) {
	return fetch(ctx, s.r.cache, CommentKeys.List(postID), func(ctx context.Context) api.Result[[]api.Comment] {
		return s.r.api.Comments().List(ctx, postID)
	})
}

// MyPosts lists posts written by the viewer, whose backend id is userID.
func (s Scope) MyPosts(ctx context.Context, userID int64, page int) (api.PostPage, error) {
	return fetch(ctx, s.r.cache, MyPageKeys(s.viewer).Posts(page), func(ctx context.Context) api.Result[api.PostPage] {
		return s.r.api.Users().Posts(ctx, userID, page)
	})
}

// MyLikes lists posts the viewer liked.
func (s Scope) MyLikes(ctx context.Context, page int) (api.PostPage, error) {
	return fetch(ctx, s.r.cache, MyPageKeys(s.viewer).Likes(page), func(ctx context.Context) api.Result[api.PostPage] {
		return s.r.api.Users().LikedPosts(ctx, page)
	})
}

// PendingUsers lists registrations awaiting an admin decision.
func (s Scope) PendingUsers(ctx context.Context) ([]api.PendingUser, error) {
	return fetch(ctx, s.r.cache, AdminKeys.Pending(), func(ctx context.Context) api.Result[[]api.PendingUser] {
		return s.r.api.Admin().PendingUsers(ctx)
	})
}

// Role and Profile back the auth state. A 401 from the role endpoint means
// "not signed in" and is cached as the empty role.
func (s Scope) Role(ctx context.Context) (api.Role, error) {
	return fetch(ctx, s.r.cache, AuthKeys(s.viewer).Role(), s.loadRole)
}

// Profile reads the viewer's profile.
func (s Scope) Profile(ctx context.Context) (api.Profile, error) {
	return fetch(ctx, s.r.cache, AuthKeys(s.viewer).Profile(), s.loadProfile)
}

// RefetchRole and RefetchProfile bypass freshness and load with the
// caller's current token.
func (s Scope) RefetchRole(ctx context.Context) (api.Role, error) {
	return refetch(ctx, s.r.cache, AuthKeys(s.viewer).Role(), s.loadRole)
}

// RefetchProfile is RefetchRole for the profile entry.
func (s Scope) RefetchProfile(ctx context.Context) (api.Profile, error) {
	return refetch(ctx, s.r.cache, AuthKeys(s.viewer).Profile(), s.loadProfile)
}

func (s Scope) loadRole(ctx context.Context) api.Result[api.Role] {
	r := s.r.api.Auth().Role(ctx)
	if r.Failure == api.FailureUnauthorized {
		return api.Result[api.Role]{Value: api.RoleNone}
	}
	return r
}

func (s Scope) loadProfile(ctx context.Context) api.Result[api.Profile] {
	return s.r.api.Users().Profile(ctx)
}
