// Package callid assigns deterministic identities to declared functions and
// to individual calls of those functions.
//
// A Descriptor names a declared function together with a content hash of its
// dependency declarations, so that changing a function's logic changes the
// identity of every call to it. A Key fingerprints one concrete call
// (Descriptor plus canonicalized argument values) and is the unit of graph
// deduplication and result caching: two calls with structurally equal
// arguments always map to the same Key, on any machine.
package callid
