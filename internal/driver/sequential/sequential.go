// Package sequential provides the reference execution backend: every task
// runs inline on the submitting goroutine, serialized by a mutex so at
// most one handler runs at a time. Useful for debugging and for tests
// that need execution without concurrency.
package sequential

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/driver"
	"github.com/vk/loomgo/internal/registry"
)

// Driver executes tasks synchronously.
type Driver struct {
	reg     *registry.Registry
	mu      sync.Mutex
	results chan *driver.Result
	done    chan struct{}
	once    sync.Once
}

// New creates a sequential driver over the catalog.
func New(reg *registry.Registry) *Driver {
	return &Driver{
		reg:     reg,
		results: make(chan *driver.Result, 1),
		done:    make(chan struct{}),
	}
}

// Submit executes the task before returning. The mutex serializes
// submissions, so execution stays one-at-a-time even when the scheduler
// dispatches a whole ready set concurrently. A Submit still waiting to
// deliver its result when the driver closes returns an error instead of
// delivering.
func (d *Driver) Submit(ctx context.Context, task *driver.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-d.done:
		return fmt.Errorf("driver is closed")
	default:
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Sequential driver executing task.", "key", task.Key.String())
	select {
	case d.results <- driver.Execute(ctx, d.reg, task):
		return nil
	case <-d.done:
		return fmt.Errorf("driver closed while delivering result for %s", task.Key)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results streams completions, one per submitted task.
func (d *Driver) Results() <-chan *driver.Result {
	return d.results
}

// Close releases the driver. A blocked Submit is unblocked first; the
// mutex is then taken so the results channel never closes under a sender.
func (d *Driver) Close() error {
	d.once.Do(func() {
		close(d.done)
		d.mu.Lock()
		close(d.results)
		d.mu.Unlock()
	})
	return nil
}
