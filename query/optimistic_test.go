package query

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type likeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

func toggleLike() Optimistic[likeState, struct{}] {
	return Optimistic[likeState, struct{}]{
		Key: Key{"posts", "detail", 1},
		Update: func(v likeState, _ struct{}) likeState {
			if v.Liked {
				return likeState{Liked: false, Count: v.Count - 1}
			}
			return likeState{Liked: true, Count: v.Count + 1}
		},
	}
}

func TestOptimisticRoundTripRestoresExactBytes(t *testing.T) {
	c := NewClient()
	original := json.RawMessage(`{ "count": 4,   "liked": false, "extra": "kept" }`)
	c.SetRaw(Key{"posts", "detail", 1}, original)

	o := toggleLike()
	mc, err := o.OnMutate(c, struct{}{})
	if err != nil {
		t.Fatalf("on mutate: %v", err)
	}
	v, _, err := Get[likeState](c, Key{"posts", "detail", 1})
	if err != nil || !v.Liked || v.Count != 5 {
		t.Fatalf("expected optimistic value, got %+v %v", v, err)
	}

	o.OnError(c, mc)
	raw, ok := c.GetRaw(Key{"posts", "detail", 1})
	if !ok || string(raw) != string(original) {
		t.Fatalf("rollback not byte-exact:\n got %s\nwant %s", raw, original)
	}
}

func TestOptimisticNoEntryIsNoop(t *testing.T) {
	c := NewClient()
	mc, err := toggleLike().OnMutate(c, struct{}{})
	if err != nil {
		t.Fatalf("on mutate: %v", err)
	}
	if len(mc.Snapshots) != 0 || c.Len() != 0 {
		t.Fatalf("expected nothing captured or created, got %d snapshots len=%d", len(mc.Snapshots), c.Len())
	}
	toggleLike().OnError(c, mc)
	if c.Len() != 0 {
		t.Fatal("rollback must not create entries")
	}
}

func TestOptimisticPatchesEveryListVariant(t *testing.T) {
	c := NewClient()
	for _, page := range []int{1, 2} {
		if err := c.Set(Key{"posts", "list", page}, []int{page}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	o := Optimistic[[]int, int]{
		Key:    Key{"posts", "list"},
		Update: func(v []int, in int) []int { return append([]int{in}, v...) },
	}
	mc, err := o.OnMutate(c, 0)
	if err != nil {
		t.Fatalf("on mutate: %v", err)
	}
	if len(mc.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(mc.Snapshots))
	}
	for _, page := range []int{1, 2} {
		v, _, _ := Get[[]int](c, Key{"posts", "list", page})
		if len(v) != 2 || v[0] != 0 {
			t.Fatalf("page %d not patched: %v", page, v)
		}
	}
}

func TestOptimisticDecodeFailureLeavesCacheUntouched(t *testing.T) {
	c := NewClient()
	c.SetRaw(Key{"posts", "list", 1}, json.RawMessage(`[1]`))
	c.SetRaw(Key{"posts", "list", 2}, json.RawMessage(`"not a list"`))

	o := Optimistic[[]int, int]{
		Key:    Key{"posts", "list"},
		Update: func(v []int, in int) []int { return append(v, in) },
	}
	if _, err := o.OnMutate(c, 9); err == nil {
		t.Fatal("expected decode failure")
	}
	raw, _ := c.GetRaw(Key{"posts", "list", 1})
	if string(raw) != `[1]` {
		t.Fatalf("partial patch applied: %s", raw)
	}
}

func TestMutateOrdering(t *testing.T) {
	c := NewClient()
	key := Key{"posts", "detail", 1}
	c.SetRaw(key, json.RawMessage(`{"liked":false,"count":0}`))

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}

	base := OptimisticHooks[string](toggleLike())
	hooks := Hooks[struct{}, string]{
		OnMutate: func(ctx context.Context, c *Client, in struct{}) (*MutationContext, error) {
			mc, err := base.OnMutate(ctx, c, in)
			record("mutate")
			return mc, err
		},
		OnSuccess: func(context.Context, *Client, string, struct{}, *MutationContext) { record("success") },
		OnSettled: func(ctx context.Context, c *Client, out string, err error, in struct{}, mc *MutationContext) {
			record("settled")
			base.OnSettled(ctx, c, out, err, in, mc)
		},
	}

	out, err := Mutate(context.Background(), c, func(context.Context, struct{}) (string, error) {
		v, _, _ := Get[likeState](c, key)
		if !v.Liked {
			t.Error("mutation ran before the optimistic patch was visible")
		}
		record("fn")
		return "ok", nil
	}, struct{}{}, hooks)
	if err != nil || out != "ok" {
		t.Fatalf("mutate: %q %v", out, err)
	}

	want := []string{"mutate", "fn", "success", "settled"}
	if len(events) != len(want) {
		t.Fatalf("events %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events %v, want %v", events, want)
		}
	}
}

func TestMutateFailureRollsBackAndRefetches(t *testing.T) {
	c := NewClient()
	key := Key{"posts", "detail", 1}
	var serverCalls int
	if _, err := Fetch(context.Background(), c, key, func(context.Context) (likeState, error) {
		serverCalls++
		return likeState{Count: 3}, nil
	}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	before, _ := c.GetRaw(key)

	boom := errors.New("409 conflict")
	var onErrorSaw likeState
	hooks := OptimisticHooks[string](toggleLike())
	rollback := hooks.OnError
	hooks.OnError = func(ctx context.Context, c *Client, err error, in struct{}, mc *MutationContext) {
		onErrorSaw, _, _ = Get[likeState](c, key)
		rollback(ctx, c, err, in, mc)
	}

	_, err := Mutate(context.Background(), c, func(context.Context, struct{}) (string, error) {
		return "", boom
	}, struct{}{}, hooks)
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}
	if !onErrorSaw.Liked {
		t.Fatal("OnError should run while the optimistic value is in place")
	}
	after, _ := c.GetRaw(key)
	if string(after) != string(before) {
		t.Fatalf("expected rollback to %s, got %s", before, after)
	}
	if serverCalls != 2 {
		t.Fatalf("expected settle to refetch, got %d calls", serverCalls)
	}
}

func TestChainRollsBackOverlappingKeys(t *testing.T) {
	c := NewClient()
	key := Key{"counter"}
	c.SetRaw(key, json.RawMessage(`1`))

	inc := Optimistic[int, int]{Key: key, Update: func(v, in int) int { return v + in }}
	hooks := Chain(OptimisticHooks[int](inc), OptimisticHooks[int](inc))

	_, err := Mutate(context.Background(), c, func(_ context.Context, in int) (int, error) {
		v, _, _ := Get[int](c, key)
		if v != 21 {
			t.Errorf("expected both patches applied, got %d", v)
		}
		return 0, errors.New("fail")
	}, 10, hooks)
	if err == nil {
		t.Fatal("expected failure")
	}
	raw, _ := c.GetRaw(key)
	if string(raw) != `1` {
		t.Fatalf("expected original value after chained rollback, got %s", raw)
	}
}
