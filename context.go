package goBlog

import (
	"context"

	"github.com/MrEthical07/goBlog/api"
)

type clientIPContextKey struct{}
type requestIDContextKey struct{}
type pathContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRequestID attaches the inbound request id to ctx. It is forwarded to
// the backend on every call made under ctx and recorded on audit events.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = api.WithRequestID(ctx, id)
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// WithPath attaches the requested path, used by guard audit events.
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pathContextKey{}, path)
}

func clientIPFromContext(ctx context.Context) string {
	return stringFromContext(ctx, clientIPContextKey{})
}

func requestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, requestIDContextKey{})
}

func pathFromContext(ctx context.Context) string {
	return stringFromContext(ctx, pathContextKey{})
}

func stringFromContext(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
