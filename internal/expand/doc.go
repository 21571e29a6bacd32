// Package expand turns a root call into a closed call graph.
//
// Expansion is a fixed-point worklist algorithm: evaluating one call's
// dependency specification discovers further calls, which are fingerprinted,
// deduplicated against the graph, and queued for their own expansion. Within
// a single specification the declarations are themselves resolved as a fixed
// point, since statements are order-independent and may reference each
// other's targets.
//
// Dependency blocks are evaluated symbolically: an expression that calls
// another graph function produces a call reference instead of executing
// anything, while every other expression form evaluates immediately to a
// concrete value. References may be placed in containers and passed onward;
// computing on one (arithmetic, indexing into it, feeding it to an ordinary
// function) is a build error, because the referenced result does not exist
// until execution.
package expand
