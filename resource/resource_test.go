package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/query"
)

// fakeBackend serves one post whose liked flag depends on the bearer token.
type fakeBackend struct {
	mu        sync.Mutex
	likedBy   map[string]bool
	likeCount int
	failLikes bool
	pending   []api.PendingUser
	listHits  int
	onLike    func()
}

func (b *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		defer b.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/posts/1":
			writeJSON(w, http.StatusOK, api.Post{ID: 1, Title: "hello", LikeCount: b.likeCount, Liked: b.likedBy[token]})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/posts":
			b.listHits++
			writeJSON(w, http.StatusOK, api.PostPage{Posts: []api.Post{{ID: 1, Title: "hello", LikeCount: b.likeCount}}})
		case r.URL.Path == "/api/v1/posts/1/likes":
			if b.onLike != nil {
				b.mu.Unlock()
				b.onLike()
				b.mu.Lock()
			}
			if b.failLikes {
				writeJSON(w, http.StatusConflict, map[string]string{"message": "already liked"})
				return
			}
			like := r.Method == http.MethodPost
			if like != b.likedBy[token] {
				b.likedBy[token] = like
				if like {
					b.likeCount++
				} else {
					b.likeCount--
				}
			}
			writeJSON(w, http.StatusOK, api.LikeStatus{Liked: like, LikeCount: b.likeCount})
		case r.URL.Path == "/api/v1/admin/users/pending":
			writeJSON(w, http.StatusOK, b.pending)
		case strings.HasPrefix(r.URL.Path, "/api/v1/admin/users/"):
			parts := strings.Split(r.URL.Path, "/")
			id, _ := strconv.ParseInt(parts[len(parts)-2], 10, 64)
			out := b.pending[:0]
			for _, u := range b.pending {
				if u.ID != id {
					out = append(out, u)
				}
			}
			b.pending = out
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/v1/auth/role":
			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"role": "USER"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestResources(t *testing.T, b *fakeBackend) *Resources {
	t.Helper()
	if b.likedBy == nil {
		b.likedBy = make(map[string]bool)
	}
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)
	client, err := api.NewClient(api.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	return New(client, query.NewClient(), nil)
}

func as(token string) context.Context {
	return api.WithToken(context.Background(), token)
}

func TestToggleLikeIsOptimisticAndSettles(t *testing.T) {
	b := &fakeBackend{likeCount: 2}
	res := newTestResources(t, b)
	alice := res.As("alice")

	if _, err := alice.Post(as("tok-alice"), 1); err != nil {
		t.Fatalf("post: %v", err)
	}

	b.onLike = func() {
		p, _, _ := query.Get[api.Post](res.Cache(), withViewer(PostKeys.Detail(1), "alice"))
		if !p.Liked || p.LikeCount != 3 {
			t.Errorf("optimistic like not visible during mutation: %+v", p)
		}
	}
	status, err := alice.ToggleLike(as("tok-alice"), LikeInput{PostID: 1, Like: true})
	if err != nil || !status.Liked {
		t.Fatalf("toggle: %+v %v", status, err)
	}

	p, _, _ := query.Get[api.Post](res.Cache(), withViewer(PostKeys.Detail(1), "alice"))
	if !p.Liked || p.LikeCount != 3 {
		t.Fatalf("expected settled server state, got %+v", p)
	}
}

func TestToggleLikeRollsBackOnFailure(t *testing.T) {
	b := &fakeBackend{likeCount: 2, failLikes: true}
	res := newTestResources(t, b)
	alice := res.As("alice")
	key := withViewer(PostKeys.Detail(1), "alice")

	if _, err := alice.Post(as("tok-alice"), 1); err != nil {
		t.Fatalf("post: %v", err)
	}
	before, _ := res.Cache().GetRaw(key)

	_, err := alice.ToggleLike(as("tok-alice"), LikeInput{PostID: 1, Like: true})
	if api.FailureOf(err) != api.FailureConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	after, _ := res.Cache().GetRaw(key)
	if string(after) != string(before) {
		t.Fatalf("expected rollback to %s, got %s", before, after)
	}
}

func TestRefetchKeepsEachViewersToken(t *testing.T) {
	b := &fakeBackend{likeCount: 0}
	res := newTestResources(t, b)

	if _, err := res.As("bob").Post(as("tok-bob"), 1); err != nil {
		t.Fatalf("bob post: %v", err)
	}
	if _, err := res.As("alice").ToggleLike(as("tok-alice"), LikeInput{PostID: 1, Like: true}); err != nil {
		t.Fatalf("alice like: %v", err)
	}

	bob, _, _ := query.Get[api.Post](res.Cache(), withViewer(PostKeys.Detail(1), "bob"))
	if bob.Liked {
		t.Fatal("bob's entry was refetched with alice's token")
	}
	if bob.LikeCount != 1 {
		t.Fatalf("expected bob to see the new count, got %d", bob.LikeCount)
	}
}

func TestInvalidatePostListsIsIdempotent(t *testing.T) {
	b := &fakeBackend{likeCount: 5}
	res := newTestResources(t, b)
	ctx := context.Background()

	if _, err := res.As("").PostList(ctx, api.PostFilter{Page: 0}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := res.As("").PostList(ctx, api.PostFilter{Page: 0, Category: "free"}); err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := res.InvalidatePostLists(ctx); err != nil {
		t.Fatalf("first invalidate: %v", err)
	}
	first := snapshot(res.Cache(), PostKeys.Lists())
	if err := res.InvalidatePostLists(ctx); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
	second := snapshot(res.Cache(), PostKeys.Lists())

	if len(first) != 2 || len(first) != len(second) {
		t.Fatalf("unexpected entries %v vs %v", first, second)
	}
	for k, v := range first {
		if second[k] != v {
			t.Fatalf("entry %s changed: %s -> %s", k, v, second[k])
		}
	}
	if err := res.InvalidatePostDetail(ctx, 99); err != nil {
		t.Fatalf("invalidating an uncached post must be a no-op: %v", err)
	}
}

func TestInvalidatePostListsSkipsBareMyPageKey(t *testing.T) {
	res := newTestResources(t, &fakeBackend{})
	if err := res.Cache().Set(query.Key{"mypage"}, "orphan"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := res.InvalidatePostLists(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
}

func TestApproveUserOptimisticRemoval(t *testing.T) {
	b := &fakeBackend{pending: []api.PendingUser{{ID: 1, Nickname: "a"}, {ID: 2, Nickname: "b"}}}
	res := newTestResources(t, b)
	admin := res.As("root")

	if _, err := admin.PendingUsers(as("tok-root")); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if err := admin.ApproveUser(as("tok-root"), 1); err != nil {
		t.Fatalf("approve: %v", err)
	}
	list, _, _ := query.Get[[]api.PendingUser](res.Cache(), AdminKeys.Pending())
	if len(list) != 1 || list[0].ID != 2 {
		t.Fatalf("unexpected pending list %+v", list)
	}
}

func TestRoleUnauthorizedIsEmptyRole(t *testing.T) {
	res := newTestResources(t, &fakeBackend{})
	role, err := res.As("ghost").Role(context.Background())
	if err != nil || role != api.RoleNone {
		t.Fatalf("expected empty role, got %q %v", role, err)
	}
	role, err = res.As("u1").Role(as("tok"))
	if err != nil || role != api.RoleUser {
		t.Fatalf("expected USER, got %q %v", role, err)
	}
}

func TestEvictIdentity(t *testing.T) {
	res := newTestResources(t, &fakeBackend{})
	c := res.Cache()
	for _, k := range []query.Key{AuthKeys("u1").Role(), AuthKeys("u1").Profile(), MyPageKeys("u1").Posts(0), AuthKeys("u2").Role()} {
		if err := c.Set(k, "x"); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if n := res.EvictIdentity("u1"); n != 3 {
		t.Fatalf("expected 3 evictions, got %d", n)
	}
	if _, ok := c.GetRaw(AuthKeys("u2").Role()); !ok {
		t.Fatal("another subject's entry was evicted")
	}
}

func snapshot(c *query.Client, prefix query.Key) map[string]string {
	out := make(map[string]string)
	for _, s := range c.Snapshot(prefix) {
		out[s.Key.Hash()] = string(s.Raw)
	}
	return out
}
