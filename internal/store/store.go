// Package store defines the capability contract for durable result
// caches: a shared mapping from call key to computed result. The engine
// never depends on a concrete backend, only on this interface; backends
// must be safely shareable across concurrent and distributed callers.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
)

// ErrNotFound is returned by Get for a key with no stored result.
var ErrNotFound = errors.New("store: key not found")

// Error wraps a backend failure so infrastructure problems stay
// distinguishable from execution failures. Callers use errors.As to
// detect it.
type Error struct {
	Op  string
	Key callid.Key
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Store is the external durable cache. Implementations must support
// concurrent readers and writers; writers racing on the same key are
// benign because equal keys imply equal values.
type Store interface {
	// Contains reports whether a result exists for the key.
	Contains(ctx context.Context, key callid.Key) (bool, error)
	// Get loads the result stored under the key, or ErrNotFound.
	Get(ctx context.Context, key callid.Key) (cty.Value, error)
	// Set durably records a result under the key. Overwriting with an
	// equal value must be safe.
	Set(ctx context.Context, key callid.Key, value cty.Value) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key callid.Key) error
	// Keys lists every stored key, in no particular order.
	Keys(ctx context.Context) ([]callid.Key, error)
}
