// Package query is an in-process cache of server data keyed by ordered
// tuples.
//
// A [Client] holds one entry per [Key]. Entries are filled by fetchers,
// marked stale and refetched by [Client.Invalidate], and overwritten and
// restored around mutations by [Optimistic]. Values are held as raw JSON so
// a restored snapshot is byte-identical to what was captured.
//
// The client is a value the caller owns and injects; there is no
// package-level cache.
//
//	Docs: docs/query.md
package query
