package resource

import (
	"context"
	"time"

	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/query"
)

// LikeInput sets the viewer's like on a post.
type LikeInput struct {
	PostID int64
	Like   bool
}

// ToggleLike likes or unlikes a post, showing the result in the viewer's
// cached post before the backend answers.
func (s Scope) ToggleLike(ctx context.Context, in LikeInput) (api.LikeStatus, error) {
	opt := query.Optimistic[api.Post, LikeInput]{
		Key:    withViewer(PostKeys.Detail(in.PostID), s.viewer),
		Update: applyLike,
		Invalidate: []query.Key{
			PostKeys.Detail(in.PostID),
			PostKeys.Lists(),
			MyPageKeys(s.viewer).LikesAll(),
		},
	}
	return query.Mutate(ctx, s.r.cache, func(ctx context.Context, in LikeInput) (api.LikeStatus, error) {
		if in.Like {
			return s.r.api.Likes().Like(ctx, in.PostID).Unwrap()
		}
		return s.r.api.Likes().Unlike(ctx, in.PostID).Unwrap()
	}, in, query.OptimisticHooks[api.LikeStatus](opt))
}

func applyLike(p api.Post, in LikeInput) api.Post {
	if p.Liked == in.Like {
		return p
	}
	p.Liked = in.Like
	if in.Like {
		p.LikeCount++
	} else if p.LikeCount > 0 {
		p.LikeCount--
	}
	return p
}

// CommentDraft is a comment to add to PostID.
type CommentDraft struct {
	PostID  int64
	Content string
}

// AddComment appends a placeholder comment (id 0) until the backend's list
// replaces it.
func (s Scope) AddComment(ctx context.Context, in CommentDraft) (api.Comment, error) {
	opt := query.Optimistic[[]api.Comment, CommentDraft]{
		Key: CommentKeys.List(in.PostID),
		Update: func(list []api.Comment, in CommentDraft) []api.Comment {
			now := time.Now().UTC()
			return append(list, api.Comment{PostID: in.PostID, Content: in.Content, CreatedAt: now, UpdatedAt: now})
		},
		Invalidate: []query.Key{PostKeys.Detail(in.PostID)},
	}
	return query.Mutate(ctx, s.r.cache, func(ctx context.Context, in CommentDraft) (api.Comment, error) {
		return s.r.api.Comments().Create(ctx, in.PostID, api.CommentInput{Content: in.Content}).Unwrap()
	}, in, query.OptimisticHooks[api.Comment](opt))
}

// CommentEdit replaces the content of comment ID on PostID.
type CommentEdit struct {
	PostID    int64
	CommentID int64
	Content   string
}

// EditComment rewrites a comment in place and rolls back on failure.
func (s Scope) EditComment(ctx context.Context, in CommentEdit) (api.Comment, error) {
	opt := query.Optimistic[[]api.Comment, CommentEdit]{
		Key: CommentKeys.List(in.PostID),
		Update: func(list []api.Comment, in CommentEdit) []api.Comment {
			out := make([]api.Comment, len(list))
			copy(out, list)
			for i := range out {
				if out[i].ID == in.CommentID {
					out[i].Content = in.Content
				}
			}
			return out
		},
	}
	return query.Mutate(ctx, s.r.cache, func(ctx context.Context, in CommentEdit) (api.Comment, error) {
		return s.r.api.Comments().Update(ctx, in.CommentID, api.CommentInput{Content: in.Content}).Unwrap()
	}, in, query.OptimisticHooks[api.Comment](opt))
}

// CommentRef identifies one comment.
type CommentRef struct {
	PostID    int64
	CommentID int64
}

// DeleteComment removes a comment from its list before the call lands.
func (s Scope) DeleteComment(ctx context.Context, in CommentRef) error {
	opt := query.Optimistic[[]api.Comment, CommentRef]{
		Key: CommentKeys.List(in.PostID),
		Update: func(list []api.Comment, in CommentRef) []api.Comment {
			out := make([]api.Comment, 0, len(list))
			for _, c := range list {
				if c.ID != in.CommentID {
					out = append(out, c)
				}
			}
			return out
		},
		Invalidate: []query.Key{PostKeys.Detail(in.PostID)},
	}
	_, err := query.Mutate(ctx, s.r.cache, func(ctx context.Context, in CommentRef) (struct{}, error) {
		return s.r.api.Comments().Delete(ctx, in.CommentID).Unwrap()
	}, in, query.OptimisticHooks[struct{}](opt))
	return err
}

// PostEdit replaces the editable fields of post ID.
type PostEdit struct {
	ID    int64
	Input api.PostInput
}

// EditPost shows the edit in the viewer's cached post at once, then
// refreshes every listing.
func (s Scope) EditPost(ctx context.Context, in PostEdit) (api.Post, error) {
	opt := query.Optimistic[api.Post, PostEdit]{
		Key: withViewer(PostKeys.Detail(in.ID), s.viewer),
		Update: func(p api.Post, in PostEdit) api.Post {
			p.Title = in.Input.Title
			p.Content = in.Input.Content
			p.Category = in.Input.Category
			if in.Input.ImageURLs != nil {
				p.ImageURLs = in.Input.ImageURLs
			}
			return p
		},
		Invalidate: []query.Key{PostKeys.Detail(in.ID)},
	}
	hooks := query.OptimisticHooks[api.Post](opt)
	hooks.OnSuccess = func(ctx context.Context, _ *query.Client, _ api.Post, _ PostEdit, _ *query.MutationContext) {
		_ = s.r.InvalidatePostLists(ctx)
	}
	return query.Mutate(ctx, s.r.cache, func(ctx context.Context, in PostEdit) (api.Post, error) {
		return s.r.api.Posts().Update(ctx, in.ID, in.Input).Unwrap()
	}, in, hooks)
}

// CreatePost publishes a post and refreshes the post lists.
func (s Scope) CreatePost(ctx context.Context, in api.PostInput) (api.Post, error) {
	return query.Mutate(ctx, s.r.cache, func(ctx context.Context, in api.PostInput) (api.Post, error) {
		return s.r.api.Posts().Create(ctx, in).Unwrap()
	}, in, query.Hooks[api.PostInput, api.Post]{
		OnSuccess: func(ctx context.Context, _ *query.Client, _ api.Post, _ api.PostInput, _ *query.MutationContext) {
			_ = s.r.InvalidatePostLists(ctx)
		},
	})
}

// DeletePost removes a post and refreshes lists and detail.
func (s Scope) DeletePost(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, s.r.cache, func(ctx context.Context, id int64) (struct{}, error) {
		return s.r.api.Posts().Delete(ctx, id).Unwrap()
	}, id, query.Hooks[int64, struct{}]{
		OnSuccess: func(ctx context.Context, c *query.Client, _ struct{}, id int64, _ *query.MutationContext) {
			c.Remove(PostKeys.Detail(id))
			c.Remove(CommentKeys.List(id))
			_ = s.r.InvalidatePostLists(ctx)
		},
	})
	return err
}

// ApproveUser and RejectUser drop the user from the cached pending list
// before the backend confirms.
func (s Scope) ApproveUser(ctx context.Context, userID int64) error {
	return s.decide(ctx, userID, func(ctx context.Context, id int64) (struct{}, error) {
		return s.r.api.Admin().Approve(ctx, id).Unwrap()
	})
}

// RejectUser declines a pending registration.
func (s Scope) RejectUser(ctx context.Context, userID int64) error {
	return s.decide(ctx, userID, func(ctx context.Context, id int64) (struct{}, error) {
		return s.r.api.Admin().Reject(ctx, id).Unwrap()
	})
}

func (s Scope) decide(ctx context.Context, userID int64, fn func(context.Context, int64) (struct{}, error)) error {
	opt := query.Optimistic[[]api.PendingUser, int64]{
		Key: AdminKeys.Pending(),
		Update: func(list []api.PendingUser, id int64) []api.PendingUser {
			out := make([]api.PendingUser, 0, len(list))
			for _, u := range list {
				if u.ID != id {
					out = append(out, u)
				}
			}
			return out
		},
	}
	_, err := query.Mutate(ctx, s.r.cache, fn, userID, query.OptimisticHooks[struct{}](opt))
	return err
}

// UpdateProfile writes the new profile into the viewer's auth entry.
func (s Scope) UpdateProfile(ctx context.Context, in api.ProfileUpdate) (api.Profile, error) {
	return query.Mutate(ctx, s.r.cache, func(ctx context.Context, in api.ProfileUpdate) (api.Profile, error) {
		return s.r.api.Users().UpdateProfile(ctx, in).Unwrap()
	}, in, query.Hooks[api.ProfileUpdate, api.Profile]{
		OnSuccess: func(ctx context.Context, c *query.Client, p api.Profile, _ api.ProfileUpdate, _ *query.MutationContext) {
			if err := c.Set(AuthKeys(s.viewer).Profile(), p); err != nil {
				s.r.logger.Warn(ctx, "cache profile", "error", err)
			}
		},
	})
}

// CompleteRegistration finishes a pending account; the role is refetched
// so the pending state clears.
func (s Scope) CompleteRegistration(ctx context.Context, in api.Registration) (api.Profile, error) {
	return query.Mutate(ctx, s.r.cache, func(ctx context.Context, in api.Registration) (api.Profile, error) {
		return s.r.api.Users().CompleteRegistration(ctx, in).Unwrap()
	}, in, query.Hooks[api.Registration, api.Profile]{
		OnSuccess: func(ctx context.Context, c *query.Client, p api.Profile, _ api.Registration, _ *query.MutationContext) {
			if err := c.Set(AuthKeys(s.viewer).Profile(), p); err != nil {
				s.r.logger.Warn(ctx, "cache profile", "error", err)
			}
			s.r.logFailure(ctx, "refetch role", c.Invalidate(ctx, AuthKeys(s.viewer).Role()))
		},
	})
}
