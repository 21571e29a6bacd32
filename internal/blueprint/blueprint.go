// Package blueprint freezes a validated call graph together with its root
// request into the immutable artifact handed to execution.
package blueprint

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/expand"
	"github.com/vk/loomgo/internal/graph"
	"github.com/vk/loomgo/internal/registry"
)

// Blueprint is the finished call graph plus the root call. It is immutable
// and may be executed any number of times; with a deterministic driver,
// every execution yields the same result.
type Blueprint struct {
	root  callid.Key
	graph *graph.Graph
	reg   *registry.Registry
}

// Build expands and validates the call graph for one root request. The
// registry must already be validated. All failure modes here are build
// errors: nothing has executed and no store has been touched.
func Build(ctx context.Context, reg *registry.Registry, rootFn string, args []cty.Value) (*Blueprint, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building blueprint.", "root", rootFn)

	g, rootKey, err := expand.New(reg).Expand(ctx, rootFn, args)
	if err != nil {
		return nil, fmt.Errorf("building blueprint for %q: %w", rootFn, err)
	}

	logger.Debug("Blueprint built.", "root", rootKey.String(), "nodes", g.Len())
	return &Blueprint{root: rootKey, graph: g, reg: reg}, nil
}

// Root returns the root call's key. For an interface root the key carries
// the interface's channel.
func (b *Blueprint) Root() callid.Key {
	return b.root
}

// Graph returns the validated call graph.
func (b *Blueprint) Graph() *graph.Graph {
	return b.graph
}

// Registry returns the function catalog the blueprint was built against.
func (b *Blueprint) Registry() *registry.Registry {
	return b.reg
}

// Len returns the number of calls in the blueprint.
func (b *Blueprint) Len() int {
	return b.graph.Len()
}
