package query

import (
	"context"

	"github.com/google/uuid"
)

// Hooks are the lifecycle callbacks of one mutation. Any may be nil.
type Hooks[In, Out any] struct {
	OnMutate  func(ctx context.Context, c *Client, input In) (*MutationContext, error)
	OnSuccess func(ctx context.Context, c *Client, out Out, input In, mc *MutationContext)
	OnError   func(ctx context.Context, c *Client, err error, input In, mc *MutationContext)
	OnSettled func(ctx context.Context, c *Client, out Out, err error, input In, mc *MutationContext)
}

// Mutate runs fn with input between the hooks.
//
// OnMutate completes before fn starts; OnSuccess or OnError completes before
// OnSettled starts. When OnMutate fails, fn is not called and its error is
// returned after OnError and OnSettled run with a nil MutationContext.
func Mutate[In, Out any](ctx context.Context, c *Client, fn func(context.Context, In) (Out, error), input In, h Hooks[In, Out]) (Out, error) {
	var (
		out Out
		mc  *MutationContext
		err error
	)
	if h.OnMutate != nil {
		mc, err = h.OnMutate(ctx, c, input)
	}
	if err == nil {
		out, err = fn(ctx, input)
	}

	if err != nil {
		c.logger.Debug(ctx, "mutation failed", "context", describe(mc), "error", err)
		if h.OnError != nil {
			h.OnError(ctx, c, err, input, mc)
		}
	} else if h.OnSuccess != nil {
		h.OnSuccess(ctx, c, out, input, mc)
	}

	if h.OnSettled != nil {
		h.OnSettled(ctx, c, out, err, input, mc)
	}
	return out, err
}

// Chain combines hooks so one mutation can patch entries of different
// types. OnMutate runs in order and stops at the first failure, after
// rolling back what earlier hooks patched; the rest run in order with the
// merged context. Rollback walks the merged snapshots backwards so a key
// patched by two hooks ends at its first captured value.
func Chain[In, Out any](hooks ...Hooks[In, Out]) Hooks[In, Out] {
	return Hooks[In, Out]{
		OnMutate: func(ctx context.Context, c *Client, input In) (*MutationContext, error) {
			var parts []*MutationContext
			for _, h := range hooks {
				if h.OnMutate == nil {
					continue
				}
				mc, err := h.OnMutate(ctx, c, input)
				if err != nil {
					c.Restore(reversed(mergeContexts("", parts).Snapshots))
					return nil, err
				}
				parts = append(parts, mc)
			}
			return mergeContexts(uuid.NewString(), parts), nil
		},
		OnSuccess: func(ctx context.Context, c *Client, out Out, input In, mc *MutationContext) {
			for _, h := range hooks {
				if h.OnSuccess != nil {
					h.OnSuccess(ctx, c, out, input, mc)
				}
			}
		},
		OnError: func(ctx context.Context, c *Client, err error, input In, mc *MutationContext) {
			if mc != nil {
				c.Restore(reversed(mc.Snapshots))
			}
			for _, h := range hooks {
				if h.OnError != nil {
					h.OnError(ctx, c, err, input, nil)
				}
			}
		},
		OnSettled: func(ctx context.Context, c *Client, out Out, err error, input In, mc *MutationContext) {
			for _, h := range hooks {
				if h.OnSettled != nil {
					h.OnSettled(ctx, c, out, err, input, mc)
				}
			}
		},
	}
}

func reversed(snaps []Snapshot) []Snapshot {
	out := make([]Snapshot, len(snaps))
	for i, s := range snaps {
		out[len(snaps)-1-i] = s
	}
	return out
}
