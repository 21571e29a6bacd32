package graph

import (
	"fmt"
	"sort"

	"github.com/vk/loomgo/internal/callid"
)

// Graph is a collection of call nodes keyed by call identity. It is built
// single-threaded by the expander; once validated and handed to a
// blueprint it is read-only and safe to share.
type Graph struct {
	nodes map[callid.Key]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[callid.Key]*Node)}
}

// Add inserts a node, deduplicating by key: if a node with the same call
// identity already exists it is kept and returned, and the new node is
// discarded. The boolean reports whether the node was actually inserted.
func (g *Graph) Add(n *Node) (*Node, bool) {
	if existing, ok := g.nodes[n.Key]; ok {
		return existing, false
	}
	g.nodes[n.Key] = n
	return n, true
}

// Node looks up a node by call key, ignoring any channel component.
func (g *Graph) Node(key callid.Key) (*Node, bool) {
	n, ok := g.nodes[key.Primary()]
	return n, ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Keys returns all node keys in deterministic (sorted) order.
func (g *Graph) Keys() []callid.Key {
	keys := make([]callid.Key, 0, len(g.nodes))
	for key := range g.nodes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Nodes returns all nodes in deterministic key order.
func (g *Graph) Nodes() []*Node {
	keys := g.Keys()
	nodes := make([]*Node, len(keys))
	for i, key := range keys {
		nodes[i] = g.nodes[key]
	}
	return nodes
}

// CycleError reports a dependency cycle found after expansion closed. It
// names the calls on the cycle so the offending definitions can be found.
type CycleError struct {
	Keys []callid.Key
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Keys))
	for i, key := range e.Keys {
		names[i] = key.String()
	}
	return fmt.Sprintf("dependency cycle detected: %v", names)
}

// TopoSort returns the node keys in a valid execution order: every node
// appears after all of its dependencies. The order is deterministic for a
// given graph. A cycle yields a CycleError naming the calls involved.
func (g *Graph) TopoSort() ([]callid.Key, error) {
	indegree := make(map[callid.Key]int, len(g.nodes))
	dependents := make(map[callid.Key][]callid.Key, len(g.nodes))

	for _, key := range g.Keys() {
		n := g.nodes[key]
		seen := make(map[callid.Key]struct{})
		for _, dep := range n.Deps {
			depKey := dep.Primary()
			if _, dup := seen[depKey]; dup {
				continue
			}
			seen[depKey] = struct{}{}
			indegree[key]++
			dependents[depKey] = append(dependents[depKey], key)
		}
	}

	var ready []callid.Key
	for _, key := range g.Keys() {
		if indegree[key] == 0 {
			ready = append(ready, key)
		}
	}

	order := make([]callid.Key, 0, len(g.nodes))
	for len(ready) > 0 {
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)
		for _, dependent := range dependents[key] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(g.nodes) {
		var cycle []callid.Key
		for _, key := range g.Keys() {
			if indegree[key] > 0 {
				cycle = append(cycle, key)
			}
		}
		return nil, &CycleError{Keys: cycle}
	}
	return order, nil
}

// Validate confirms the closed graph's invariants: acyclicity, closure
// (every dependency key names a node in the graph), and channel edges
// bound to a producer that actually declares the channel.
func (g *Graph) Validate() error {
	for _, n := range g.Nodes() {
		for _, dep := range n.Deps {
			producer, ok := g.Node(dep)
			if !ok {
				return fmt.Errorf("node %s depends on %s, which is not in the graph", n.Key, dep)
			}
			if dep.Channel == "" {
				continue
			}
			if !declaresChannel(producer, dep.Channel) {
				return fmt.Errorf("node %s consumes channel %q of %s, which does not declare it",
					n.Key, dep.Channel, producer.Key)
			}
		}
	}
	if _, err := g.TopoSort(); err != nil {
		return err
	}
	return nil
}

func declaresChannel(n *Node, channel string) bool {
	for _, ch := range n.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}
