// Package internal holds packages private to the goBlog module.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: GOBLOG_* environment loading for the binaries
//   - logging: the context-aware Logger contract and its slog adapter
//   - rate: Redis fixed-window counters for the refresh throttle
//
// # What this package must NOT do
//
//   - Export types that appear in the public goBlog API, except through aliases.
//   - Be imported by any package outside the goBlog module.
package internal
