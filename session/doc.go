// Package session owns where session material lives.
//
// # Components
//
//   - [Storage]: get/set/delete over named session values. [CookieStorage]
//     backs it with HTTP cookies scoped to the site's cookie domain;
//     [MemoryStorage] backs it with a map for tests and tooling.
//   - [Store]: Redis-backed record of revoked token IDs and of refresh
//     results handed off between replicas.
//
// # Architecture boundaries
//
// This package does NOT parse or verify tokens and makes no authorization
// decisions; the Engine owns those.
//
// # What this package must NOT do
//
//   - Import goBlog, jwt, or query (no upward imports).
//   - Store token material in Redis in plaintext keys (keys are hashed).
package session
