// Package graph holds the expanded call graph: one node per deduplicated
// call, keyed by call identity, with edges expressing which results each
// call consumes. The package also validates the finished graph before it
// is frozen into a blueprint.
package graph
