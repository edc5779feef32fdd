package resource

import (
	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/query"
)

type postKeys struct{}

// PostKeys names post entries. Lists and details are suffixed with the
// viewer by [Scope].
var PostKeys postKeys

func (postKeys) All() query.Key { return query.Key{"posts"} }
func (postKeys) Lists() query.Key { return query.Key{"posts", "list"} }
func (postKeys) List(f api.PostFilter) query.Key { return query.Key{"posts", "list", f} }
func (postKeys) Details() query.Key { return query.Key{"posts", "detail"} }
func (postKeys) Detail(id int64) query.Key { return query.Key{"posts", "detail", id} }

type commentKeys struct{}

// CommentKeys names comment lists, one per post.
var CommentKeys commentKeys

func (commentKeys) All() query.Key { return query.Key{"comments"} }
func (commentKeys) List(postID int64) query.Key { return query.Key{"comments", postID} }

// MyPageKeys names the listings of one signed-in user. They are
// identity-scoped and evicted on logout.
type MyPageKeys string

func (m MyPageKeys) All() query.Key { return query.Key{"mypage", string(m)} }
func (m MyPageKeys) Posts(page int) query.Key { return query.Key{"mypage", string(m), "posts", page} }
func (m MyPageKeys) Likes(page int) query.Key { return query.Key{"mypage", string(m), "likes", page} }
func (m MyPageKeys) PostsAll() query.Key { return query.Key{"mypage", string(m), "posts"} }
func (m MyPageKeys) LikesAll() query.Key { return query.Key{"mypage", string(m), "likes"} }

// AuthKeys names the role and profile entries of one subject.
type AuthKeys string

func (a AuthKeys) All() query.Key { return query.Key{"auth", string(a)} }
func (a AuthKeys) Role() query.Key { return query.Key{"auth", string(a), "role"} }
func (a AuthKeys) Profile() query.Key { return query.Key{"auth", string(a), "profile"} }

type adminKeys struct{}

// AdminKeys names the admin review queue.
var AdminKeys adminKeys

func (adminKeys) Pending() query.Key { return query.Key{"admin", "pending"} }

// IdentityScoped lists the prefixes holding data private to subject.
func IdentityScoped(subject string) []query.Key {
	return []query.Key{AuthKeys(subject).All(), MyPageKeys(subject).All()}
}

func withViewer(k query.Key, viewer string) query.Key {
	return append(append(query.Key(nil), k...), viewer)
}
