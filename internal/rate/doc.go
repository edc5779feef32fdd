// Package rate implements the Redis fixed-window counters that throttle
// backend refresh exchanges.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Keys are
// "<prefix>:rl:refresh:<token hash>"; raw refresh tokens never reach Redis.
//
// # What this package must NOT do
//
//   - Decide what happens to a throttled request. Callers map [ErrRateLimited].
//   - Be imported outside the goBlog module.
package rate
