package expand

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/depspec"
	"github.com/vk/loomgo/internal/graph"
	"github.com/vk/loomgo/internal/registry"
)

// DefaultNodeBound caps how many nodes a single expansion may create
// before it is aborted as runaway recursion.
const DefaultNodeBound = 100_000

// Expander builds closed call graphs from a function catalog. Expansion is
// single-threaded and deterministic: it performs no I/O and never runs a
// function body.
type Expander struct {
	reg       *registry.Registry
	nodeBound int
}

// New creates an expander over the given catalog.
func New(reg *registry.Registry) *Expander {
	return &Expander{reg: reg, nodeBound: DefaultNodeBound}
}

// WithNodeBound overrides the expansion node bound.
func (x *Expander) WithNodeBound(bound int) *Expander {
	x.nodeBound = bound
	return x
}

// Expand builds the closed graph for a root call. The root may name a
// function or an interface; for an interface the returned key carries the
// interface's channel, bound to the producing function's node.
func (x *Expander) Expand(ctx context.Context, rootFn string, args []cty.Value) (*graph.Graph, callid.Key, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Expand: starting graph construction.", "root", rootFn, "args", len(args))

	rootEv := newEvaluator(x.reg, rootFn, nil)
	rootRef, err := rootEv.resolveCall(rootFn, args)
	if err != nil {
		return nil, callid.Key{}, err
	}
	ref, _ := callid.RefFromValue(rootRef)
	rootKey := ref.Key

	g := graph.New()
	worklist := rootEv.calls()

	for len(worklist) > 0 {
		pending := worklist[0]
		worklist = worklist[1:]

		if _, exists := g.Node(pending.key); exists {
			continue
		}
		if g.Len() >= x.nodeBound {
			return nil, callid.Key{}, &BoundExceededError{Function: rootFn, Limit: x.nodeBound}
		}

		node, discovered, err := x.expandCall(ctx, pending)
		if err != nil {
			return nil, callid.Key{}, err
		}
		g.Add(node)
		worklist = append(worklist, discovered...)
		logger.Debug("Expand: node added.", "key", node.Key.String(), "deps", len(node.Deps), "pending", len(worklist))
	}

	logger.Debug("Expand: graph closed.", "nodes", g.Len())
	if err := g.Validate(); err != nil {
		return nil, callid.Key{}, err
	}
	logger.Debug("Expand: validation passed.")
	return g, rootKey, nil
}

// expandCall evaluates one call's dependency specification to a fixed
// point and materializes its graph node. The returned pending calls are
// the block's direct callees, not yet present in the graph.
func (x *Expander) expandCall(ctx context.Context, pending *pendingCall) (*graph.Node, []*pendingCall, error) {
	fn, ok := x.reg.Function(pending.function)
	if !ok {
		return nil, nil, fmt.Errorf("call to undeclared function %q", pending.function)
	}
	if len(pending.args) != len(fn.Params) {
		return nil, nil, fmt.Errorf("call to %q with %d arguments, expected %d",
			fn.Name, len(pending.args), len(fn.Params))
	}

	env := make(map[string]cty.Value, len(fn.Params))
	for i, param := range fn.Params {
		env[param] = pending.args[i]
	}

	ev := newEvaluator(x.reg, fn.Name, env)
	bindings, err := x.evalSpec(ev, fn)
	if err != nil {
		return nil, nil, err
	}

	node := &graph.Node{
		Key:      pending.key,
		Function: fn.Name,
		Args:     pending.args,
		Bindings: bindings,
		Channels: fn.Channels,
	}

	// Every call the block makes is a dependency edge, whether its result
	// is bound to a name, nested in a container, passed straight through
	// an argument, or discarded by a free expression.
	values := make([]cty.Value, 0, len(pending.args)+len(bindings))
	values = append(values, pending.args...)
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values = append(values, bindings[name])
	}
	deps := callid.CollectRefs(values...)
	seen := make(map[callid.Key]struct{}, len(deps))
	for _, dep := range deps {
		seen[dep.Primary()] = struct{}{}
	}
	discovered := ev.calls()
	for _, call := range discovered {
		if _, dup := seen[call.key]; !dup {
			seen[call.key] = struct{}{}
			deps = append(deps, call.key)
		}
	}
	node.Deps = deps

	return node, discovered, nil
}

// evalSpec resolves a dependency block's declarations as a fixed point.
// Statements are order-independent, so each round evaluates whatever has
// its referenced names bound; a round with no progress means the remaining
// assignments form a cycle with no concrete base case.
func (x *Expander) evalSpec(ev *evaluator, fn *registry.Function) (map[string]cty.Value, error) {
	bindings := make(map[string]cty.Value)
	remaining := fn.Spec.Declarations

	for len(remaining) > 0 {
		progress := false
		var next []depspec.Declaration
		for _, decl := range remaining {
			val, err := ev.eval(decl.Expr)
			var unresolved *unresolvedNameError
			if errors.As(err, &unresolved) {
				if isDeclared(fn, unresolved.name) {
					next = append(next, decl)
					continue
				}
				return nil, fmt.Errorf("dependency block of %q references undeclared name %q",
					fn.Name, unresolved.name)
			}
			if err != nil {
				return nil, err
			}
			if decl.Name != "" {
				ev.env[decl.Name] = val
				bindings[decl.Name] = val
			}
			progress = true
		}

		if !progress {
			names := make([]string, 0, len(next))
			for _, decl := range next {
				name := decl.Name
				if name == "" {
					name = "<free expression>"
				}
				names = append(names, name)
			}
			return nil, &UnresolvableError{Function: fn.Name, Remaining: names}
		}
		remaining = next
	}

	return bindings, nil
}

// isDeclared reports whether a name is one of the block's own assignment
// targets, which makes an unresolved reference to it retryable.
func isDeclared(fn *registry.Function, name string) bool {
	for _, decl := range fn.Spec.Declarations {
		if decl.Name == name {
			return true
		}
	}
	return false
}
