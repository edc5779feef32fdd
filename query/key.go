package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cache entry: an ordered tuple of scalars or small
// JSON-encodable values such as filter structs.
type Key []any

// Hash returns a stable string for k. Two keys hash equally iff every
// element has the same JSON encoding.
func (k Key) Hash() string {
	return joinParts(k.parts())
}

func joinParts(parts []string) string {
	return strings.Join(parts, "\x1f")
}

// HasPrefix reports whether the first len(prefix) elements of k equal prefix.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	return hasPrefix(k.parts(), prefix.parts())
}

// String renders k for logs.
func (k Key) String() string {
	return "[" + strings.Join(k.parts(), ",") + "]"
}

func (k Key) parts() []string {
	out := make([]string, len(k))
	for i, el := range k {
		b, err := json.Marshal(el)
		if err != nil {
			out[i] = fmt.Sprintf("%q", fmt.Sprint(el))
			continue
		}
		out[i] = string(b)
	}
	return out
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}
