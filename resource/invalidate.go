package resource

import (
	"context"
	"errors"

	"github.com/MrEthical07/goBlog/query"
)

// InvalidatePostLists refetches every cached post listing, including each
// viewer's "my page" listings. Calling it again with no intervening change
// leaves the cache as it was.
func (r *Resources) InvalidatePostLists(ctx context.Context) error {
	err := r.cache.Invalidate(ctx, PostKeys.Lists())
	seen := make(map[string]bool)
	for _, k := range r.cache.Keys(query.Key{"mypage"}) {
		if len(k) < 2 {
			continue
		}
		viewer, ok := k[1].(string)
		if !ok || seen[viewer] {
			continue
		}
		seen[viewer] = true
		err = errors.Join(err, r.cache.Invalidate(ctx, MyPageKeys(viewer).PostsAll()))
	}
	r.logFailure(ctx, "invalidate post lists", err)
	return err
}

// InvalidatePostDetail refetches post id for every viewer, and its comments.
func (r *Resources) InvalidatePostDetail(ctx context.Context, id int64) error {
	err := errors.Join(
		r.cache.Invalidate(ctx, PostKeys.Detail(id)),
		r.cache.Invalidate(ctx, CommentKeys.List(id)),
	)
	r.logFailure(ctx, "invalidate post detail", err)
	return err
}

// EvictIdentity drops every entry private to subject.
func (r *Resources) EvictIdentity(subject string) int {
	n := 0
	for _, k := range IdentityScoped(subject) {
		n += r.cache.Remove(k)
	}
	return n
}

func (r *Resources) logFailure(ctx context.Context, msg string, err error) {
	if err != nil {
		r.logger.Warn(ctx, msg, "error", err)
	}
}
