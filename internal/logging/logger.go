// Package logging defines the structured, context-aware logger used by the
// engine and its sub-packages.
//
// # Architecture boundaries
//
// This package owns the Logger contract and its slog-backed implementation.
// Callers decide what to log; this package never inspects messages.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "session resolved", "subject", sub, "jti", jti)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
