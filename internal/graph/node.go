package graph

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
)

// Node is one vertex in the call graph: a single deduplicated call with
// its concrete (possibly still symbolic) arguments and its dependency
// edges. Nodes are immutable once added to a graph; results live in the
// store, never on the node.
type Node struct {
	// Key is the call's deterministic identity and the node's graph key.
	Key callid.Key
	// Function is the name of the declared function this node calls.
	Function string
	// Args holds the call's argument values. Values may contain call
	// references; the scheduler resolves those from the store before
	// dispatch.
	Args []cty.Value
	// Bindings holds the evaluated dependency declarations by name. These
	// are the values the function body consumes under its declared names;
	// like Args, they may contain call references until dispatch.
	Bindings map[string]cty.Value
	// Deps lists the keys of calls whose results this call consumes.
	// Channel components on a dep key bind the edge to a named output of
	// the producing node rather than its primary result.
	Deps []callid.Key
	// Channels names the auxiliary outputs this call's execution produces,
	// copied from the function declaration.
	Channels []string
}

// DependsOn reports whether the node consumes the given call, ignoring
// channel components.
func (n *Node) DependsOn(key callid.Key) bool {
	for _, dep := range n.Deps {
		if dep.Primary() == key.Primary() {
			return true
		}
	}
	return false
}
