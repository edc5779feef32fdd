package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MutationContext carries what a mutation captured before it ran.
type MutationContext struct {
	ID        string
	Snapshots []Snapshot
}

// Optimistic applies Update to cached values of type V before a mutation
// completes and reverts them if it fails.
//
// Key is matched as a prefix, so one helper can patch several variants of a
// list (for example one per filter) at once.
type Optimistic[V any, In any] struct {
	Key        Key
	Update     func(current V, input In) V
	Invalidate []Key
}

// OnMutate cancels fetches under Key, snapshots every entry under Key and
// writes Update(old, input) in its place. With no cached entry it captures
// nothing and changes nothing.
func (o Optimistic[V, In]) OnMutate(c *Client, input In) (*MutationContext, error) {
	if o.Update == nil {
		return nil, errors.New("query: optimistic update requires Update")
	}
	snaps, err := c.Patch(o.Key, func(raw json.RawMessage) (json.RawMessage, error) {
		var current V
		if err := json.Unmarshal(raw, &current); err != nil {
			return nil, err
		}
		return json.Marshal(o.Update(current, input))
	})
	if err != nil {
		return nil, err
	}
	return &MutationContext{ID: uuid.NewString(), Snapshots: snaps}, nil
}

// OnError restores every captured entry in capture order.
func (o Optimistic[V, In]) OnError(c *Client, mc *MutationContext) {
	if mc == nil {
		return
	}
	c.Restore(mc.Snapshots)
}

// OnSettled invalidates Key and every extra key so the server's version wins.
func (o Optimistic[V, In]) OnSettled(ctx context.Context, c *Client) error {
	var errs []error
	for _, k := range append([]Key{o.Key}, o.Invalidate...) {
		if err := c.Invalidate(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OptimisticHooks adapts o to [Mutate]. Out is the mutation's result type.
func OptimisticHooks[Out any, V any, In any](o Optimistic[V, In]) Hooks[In, Out] {
	return Hooks[In, Out]{
		OnMutate: func(_ context.Context, c *Client, input In) (*MutationContext, error) {
			return o.OnMutate(c, input)
		},
		OnError: func(_ context.Context, c *Client, _ error, _ In, mc *MutationContext) {
			o.OnError(c, mc)
		},
		OnSettled: func(ctx context.Context, c *Client, _ Out, _ error, _ In, mc *MutationContext) {
			if err := o.OnSettled(ctx, c); err != nil {
				id := ""
				if mc != nil {
					id = mc.ID
				}
				c.logger.Warn(ctx, "optimistic settle refetch failed", "mutation", id, "key", o.Key.String(), "error", err)
			}
		},
	}
}

// mergeContexts folds per-hook contexts into one, keeping capture order.
func mergeContexts(id string, parts []*MutationContext) *MutationContext {
	mc := &MutationContext{ID: id}
	for _, p := range parts {
		if p != nil {
			mc.Snapshots = append(mc.Snapshots, p.Snapshots...)
		}
	}
	return mc
}

func describe(mc *MutationContext) string {
	if mc == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s(%d snapshots)", mc.ID, len(mc.Snapshots))
}
