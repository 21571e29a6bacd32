package schedule

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/graph"
	"github.com/vk/loomgo/internal/registry"
	"github.com/vk/loomgo/internal/store"
)

// resolveCall replaces every call reference in the node's arguments and
// bindings with the referenced result loaded from the store. All
// referenced calls have completed by the time the node is ready, so a
// miss here is a store failure, not a scheduling race.
func resolveCall(ctx context.Context, st store.Store, node *graph.Node) (*registry.Call, error) {
	call := &registry.Call{}
	for _, arg := range node.Args {
		resolved, err := resolveValue(ctx, st, arg)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, resolved)
	}
	if len(node.Bindings) > 0 {
		call.Bindings = make(map[string]cty.Value, len(node.Bindings))
		for name, val := range node.Bindings {
			resolved, err := resolveValue(ctx, st, val)
			if err != nil {
				return nil, err
			}
			call.Bindings[name] = resolved
		}
	}
	return call, nil
}

func resolveValue(ctx context.Context, st store.Store, val cty.Value) (cty.Value, error) {
	return cty.Transform(val, func(path cty.Path, v cty.Value) (cty.Value, error) {
		ref, ok := callid.RefFromValue(v)
		if !ok {
			return v, nil
		}
		return st.Get(ctx, ref.Key)
	})
}
