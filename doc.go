// Package goBlog is the server-side core of the blog web application: it
// resolves the session cookie into a verified [Session], composes the
// [AuthState] shown to views, evaluates route guards, and owns the shared
// query cache that the resource layer reads and optimistically patches.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goBlog is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (AuthState, GuardDecision, MetricsSnapshot, etc.). Token verification lives in jwt/,
// cookie and Redis access in session/, the cache in query/, the backend client in api/,
// and per-resource queries and mutations in resource/.
//
// # What this package must NOT do
//
//   - Keep per-user state outside the query cache; every identity-scoped cache key embeds
//     the session subject.
//   - Surface token failures to the render path. An unverifiable session is an absent one.
//   - Import middleware or any package that re-imports goBlog (no import cycles).
//
// # Performance contract
//
// SessionFromStorage is the hot path. It verifies the token locally and makes at most one
// Redis round-trip (the revocation check). Refresh is collapsed per token across
// goroutines and handed off across replicas.
package goBlog
