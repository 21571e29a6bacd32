// Package memstore provides an ephemeral, thread-safe, in-memory
// implementation of the store.Store contract, suitable for single-process
// runs and tests. It keeps results as live cty values using sync.Map for
// fine-grained concurrent access: each call's entry is independent, and
// the executor's workers read and write disjoint keys most of the time.
package memstore

import (
	"context"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/store"
)

// Store is the in-memory result cache.
type Store struct {
	results sync.Map // Key: callid.Key, Value: cty.Value
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Contains reports whether a result exists for the key.
func (s *Store) Contains(ctx context.Context, key callid.Key) (bool, error) {
	_, ok := s.results.Load(key)
	return ok, nil
}

// Get loads the result stored under the key.
func (s *Store) Get(ctx context.Context, key callid.Key) (cty.Value, error) {
	value, ok := s.results.Load(key)
	if !ok {
		return cty.NilVal, &store.Error{Op: "get", Key: key, Err: store.ErrNotFound}
	}
	return value.(cty.Value), nil
}

// Set records a result under the key.
func (s *Store) Set(ctx context.Context, key callid.Key, value cty.Value) error {
	s.results.Store(key, value)
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key callid.Key) error {
	s.results.Delete(key)
	return nil
}

// Keys lists every stored key.
func (s *Store) Keys(ctx context.Context) ([]callid.Key, error) {
	var keys []callid.Key
	s.results.Range(func(k, _ any) bool {
		keys = append(keys, k.(callid.Key))
		return true
	})
	return keys, nil
}
