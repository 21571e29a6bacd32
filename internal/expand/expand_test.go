package expand

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/depspec"
	"github.com/vk/loomgo/internal/graph"
	"github.com/vk/loomgo/internal/registry"
)

// fnDef is a compact function definition for building test catalogs.
type fnDef struct {
	params   []string
	decls    map[string]string
	free     []string
	channels []string
}

func buildRegistry(t *testing.T, fns map[string]fnDef, ifaces ...*registry.Interface) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for name, def := range fns {
		spec, err := depspec.New(name, def.params, def.decls, def.free)
		require.NoError(t, err)
		require.NoError(t, reg.RegisterFunction(&registry.Function{
			Name:     name,
			Params:   def.params,
			Spec:     spec,
			Channels: def.channels,
		}))
	}
	for _, iface := range ifaces {
		require.NoError(t, reg.RegisterInterface(iface))
	}
	return reg
}

func expandRoot(t *testing.T, reg *registry.Registry, root string, args ...cty.Value) (*graph.Graph, callid.Key) {
	t.Helper()
	g, key, err := New(reg).Expand(context.Background(), root, args)
	require.NoError(t, err)
	return g, key
}

func TestExpand_SingleLeafCall(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"leaf": {params: []string{"n"}},
	})

	g, root := expandRoot(t, reg, "leaf", cty.NumberIntVal(1))

	assert.Equal(t, 1, g.Len())
	node, ok := g.Node(root)
	require.True(t, ok)
	assert.Equal(t, "leaf", node.Function)
	assert.Empty(t, node.Deps)
}

func TestExpand_FibonacciDeduplicates(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"fib": {
			params: []string{"n"},
			decls: map[string]string{
				"f_a": "n > 1 ? fib(n - 1) : 0",
				"f_b": "n > 1 ? fib(n - 2) : 0",
			},
		},
	})

	g, root := expandRoot(t, reg, "fib", cty.NumberIntVal(5))

	// fib(0) through fib(5): shared subcalls collapse into one node each.
	assert.Equal(t, 6, g.Len())

	rootNode, ok := g.Node(root)
	require.True(t, ok)
	assert.Len(t, rootNode.Deps, 2, "fib(5) depends on fib(4) and fib(3)")
	for _, dep := range rootNode.Deps {
		assert.Equal(t, "fib", dep.Function)
	}

	// Base cases bind concrete zeros and depend on nothing.
	base := 0
	for _, n := range g.Nodes() {
		if len(n.Deps) == 0 {
			base++
			assert.True(t, cty.NumberIntVal(0).RawEquals(n.Bindings["f_a"]))
		}
	}
	assert.Equal(t, 2, base, "fib(0) and fib(1) are the only leaves")
}

func TestExpand_FanOutSiblingsShareNoEdges(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"leaf": {params: []string{"n"}},
		"gather": {
			params: []string{"count"},
			decls: map[string]string{
				"items": "[for i in range(count) : leaf(i)]",
			},
		},
	})

	g, root := expandRoot(t, reg, "gather", cty.NumberIntVal(3))

	require.Equal(t, 4, g.Len())
	rootNode, ok := g.Node(root)
	require.True(t, ok)
	assert.Len(t, rootNode.Deps, 3)

	for _, n := range g.Nodes() {
		if n.Function == "leaf" {
			assert.Empty(t, n.Deps, "fan-out siblings are independent")
		}
	}
}

func TestExpand_NestedCallArguments(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"inner": {params: []string{"n"}},
		"outer": {params: []string{"v"}},
		"top": {
			params: []string{"n"},
			decls: map[string]string{
				"a": "outer(inner(n))",
			},
		},
	})

	g, root := expandRoot(t, reg, "top", cty.NumberIntVal(1))

	require.Equal(t, 3, g.Len())
	rootNode, _ := g.Node(root)
	assert.Len(t, rootNode.Deps, 2, "both the outer call and its embedded inner call are dependencies")

	// The outer node's argument is a reference, giving it an edge to inner.
	var outerNode *graph.Node
	for _, n := range g.Nodes() {
		if n.Function == "outer" {
			outerNode = n
		}
	}
	require.NotNil(t, outerNode)
	require.Len(t, outerNode.Deps, 1)
	assert.Equal(t, "inner", outerNode.Deps[0].Function)
	ref, ok := callid.RefFromValue(outerNode.Args[0])
	require.True(t, ok)
	assert.Equal(t, outerNode.Deps[0], ref.Key)
}

func TestExpand_FreeExpressionIsAnEdge(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"side": {params: []string{"n"}},
		"main": {
			params: []string{"n"},
			free:   []string{"side(n)"},
		},
	})

	g, root := expandRoot(t, reg, "main", cty.NumberIntVal(1))

	require.Equal(t, 2, g.Len())
	rootNode, _ := g.Node(root)
	require.Len(t, rootNode.Deps, 1)
	assert.Equal(t, "side", rootNode.Deps[0].Function)
	assert.Empty(t, rootNode.Bindings, "a discarded result binds no name")
}

func TestExpand_UntakenBranchIsNotExpanded(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"leaf": {params: []string{"n"}},
		"main": {
			params: []string{"n"},
			decls:  map[string]string{"a": "n > 100 ? leaf(n) : 0"},
		},
	})

	g, root := expandRoot(t, reg, "main", cty.NumberIntVal(1))

	assert.Equal(t, 1, g.Len(), "the call in the untaken branch must not become a node")
	rootNode, _ := g.Node(root)
	assert.True(t, cty.NumberIntVal(0).RawEquals(rootNode.Bindings["a"]))
}

func TestExpand_DeclarationOrderIndependence(t *testing.T) {
	// a reads b although b sorts after a; the fixed point resolves it.
	reg := buildRegistry(t, map[string]fnDef{
		"leaf": {params: []string{"n"}},
		"main": {
			params: []string{"n"},
			decls: map[string]string{
				"a": "b",
				"b": "leaf(n)",
			},
		},
	})

	g, root := expandRoot(t, reg, "main", cty.NumberIntVal(1))

	require.Equal(t, 2, g.Len())
	rootNode, _ := g.Node(root)
	assert.Equal(t, rootNode.Bindings["b"], rootNode.Bindings["a"])
	assert.Len(t, rootNode.Deps, 1)
}

func TestExpand_MutuallyRecursiveDeclarationsFail(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"main": {
			params: []string{"n"},
			decls: map[string]string{
				"a": "b",
				"b": "a",
			},
		},
	})

	_, _, err := New(reg).Expand(context.Background(), "main", []cty.Value{cty.NumberIntVal(1)})

	var unresolvable *UnresolvableError
	require.ErrorAs(t, err, &unresolvable)
	assert.Equal(t, "main", unresolvable.Function)
	assert.ElementsMatch(t, []string{"a", "b"}, unresolvable.Remaining)
}

func TestExpand_UndeclaredNameFails(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"main": {
			params: []string{"n"},
			decls:  map[string]string{"a": "nonsense + 1"},
		},
	})

	_, _, err := New(reg).Expand(context.Background(), "main", []cty.Value{cty.NumberIntVal(1)})
	assert.ErrorContains(t, err, "undeclared name")
}

func TestExpand_SymbolicUseErrors(t *testing.T) {
	cases := map[string]string{
		"arithmetic on a call result":    "leaf(n) + 1",
		"core function on a call result": "length(leaf(n))",
		"condition from a call result":   "leaf(n) > 0 ? 1 : 2",
		"iterating a call result":        "[for x in leaf(n) : x]",
		"template interpolation":         "\"prefix-${leaf(n)}\"",
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			reg := buildRegistry(t, map[string]fnDef{
				"leaf": {params: []string{"n"}},
				"main": {
					params: []string{"n"},
					decls:  map[string]string{"a": src},
				},
			})

			_, _, err := New(reg).Expand(context.Background(), "main", []cty.Value{cty.NumberIntVal(1)})
			var symbolic *SymbolicUseError
			require.ErrorAs(t, err, &symbolic, "expected symbolic use error for %q", src)
			assert.Equal(t, "main", symbolic.Function)
		})
	}
}

func TestExpand_InterfaceResolvesToProducerChannel(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"producer": {params: []string{"n"}, channels: []string{"out"}},
		"consumer": {
			params: []string{"n"},
			decls:  map[string]string{"a": "latest(n)"},
		},
	}, &registry.Interface{Name: "latest", Channel: "out"})

	g, root := expandRoot(t, reg, "consumer", cty.NumberIntVal(1))

	require.Equal(t, 2, g.Len(), "the interface adds no node of its own")
	rootNode, _ := g.Node(root)
	require.Len(t, rootNode.Deps, 1)
	assert.Equal(t, "producer", rootNode.Deps[0].Function)
	assert.Equal(t, "out", rootNode.Deps[0].Channel)
}

func TestExpand_InterfaceAsRoot(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"producer": {params: []string{"n"}, channels: []string{"out"}},
	}, &registry.Interface{Name: "latest", Channel: "out"})

	g, root := expandRoot(t, reg, "latest", cty.NumberIntVal(1))

	assert.Equal(t, 1, g.Len())
	assert.Equal(t, "out", root.Channel, "the root key addresses the interface's channel")
	_, ok := g.Node(root)
	assert.True(t, ok)
}

func TestExpand_NodeBound(t *testing.T) {
	// No base case: every call discovers another one.
	reg := buildRegistry(t, map[string]fnDef{
		"runaway": {
			params: []string{"n"},
			decls:  map[string]string{"a": "runaway(n + 1)"},
		},
	})

	_, _, err := New(reg).WithNodeBound(10).Expand(context.Background(), "runaway", []cty.Value{cty.NumberIntVal(0)})

	var bound *BoundExceededError
	require.ErrorAs(t, err, &bound)
	assert.Equal(t, 10, bound.Limit)
}

func TestExpand_ArgumentCountMismatch(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"leaf": {params: []string{"n"}},
	})

	_, _, err := New(reg).Expand(context.Background(), "leaf", nil)
	assert.ErrorContains(t, err, "expected 1")
}

func TestExpand_UnknownRootFails(t *testing.T) {
	reg := buildRegistry(t, nil)
	_, _, err := New(reg).Expand(context.Background(), "ghost", nil)
	assert.ErrorContains(t, err, "undeclared function")
}

func TestExpand_CoreFunctionsOverConcreteValues(t *testing.T) {
	reg := buildRegistry(t, map[string]fnDef{
		"leaf": {params: []string{"n"}},
		"main": {
			params: []string{"count"},
			decls: map[string]string{
				"picked": "leaf(max(count, 2))",
				"total":  "length(range(count))",
			},
		},
	})

	g, root := expandRoot(t, reg, "main", cty.NumberIntVal(5))

	require.Equal(t, 2, g.Len())
	rootNode, _ := g.Node(root)
	assert.Equal(t, cty.NumberIntVal(5), rootNode.Bindings["total"])
}
