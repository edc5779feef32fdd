package query

import "testing"

type listFilter struct {
	Category string `json:"category,omitempty"`
	Page     int    `json:"page"`
}

func TestKeyHashIsStable(t *testing.T) {
	a := Key{"posts", "list", listFilter{Category: "free", Page: 1}}
	b := Key{"posts", "list", listFilter{Category: "free", Page: 1}}
	c := Key{"posts", "list", listFilter{Category: "free", Page: 2}}

	if a.Hash() != b.Hash() {
		t.Fatalf("equal keys hashed differently: %q vs %q", a.Hash(), b.Hash())
	}
	if a.Hash() == c.Hash() {
		t.Fatal("different filters must hash differently")
	}
	if (Key{"1"}).Hash() == (Key{1}).Hash() {
		t.Fatal("string and number elements must not collide")
	}
}

func TestKeyHasPrefix(t *testing.T) {
	k := Key{"posts", "detail", 42}
	cases := []struct {
		prefix Key
		want   bool
	}{
		{Key{}, true},
		{Key{"posts"}, true},
		{Key{"posts", "detail"}, true},
		{Key{"posts", "detail", 42}, true},
		{Key{"posts", "list"}, false},
		{Key{"posts", "detail", 42, "x"}, false},
		{Key{"post"}, false},
	}
	for _, tc := range cases {
		if got := k.HasPrefix(tc.prefix); got != tc.want {
			t.Fatalf("%s.HasPrefix(%s) = %v, want %v", k, tc.prefix, got, tc.want)
		}
	}
}
