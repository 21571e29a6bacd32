// Package pool provides a local concurrent execution backend: a bounded
// pool of worker goroutines draining a task channel. The pool size caps
// real parallelism; the scheduler may submit an entire ready set at once
// and collect completions as the workers finish.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/driver"
	"github.com/vk/loomgo/internal/registry"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 10

// Driver executes tasks on a fixed pool of workers.
type Driver struct {
	reg     *registry.Registry
	tasks   chan *driver.Task
	results chan *driver.Result
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// New creates and starts a pool driver with the given number of workers.
func New(ctx context.Context, reg *registry.Registry, workers int) *Driver {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	d := &Driver{
		reg:     reg,
		tasks:   make(chan *driver.Task),
		results: make(chan *driver.Result, workers),
		done:    make(chan struct{}),
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker pool driver.", "workers", workers)
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker(ctx, i)
	}
	return d
}

// worker is the processing loop for a single concurrent worker. The task
// channel is never closed; workers stop when the done channel closes, so
// a Submit blocked handing over a task can never hit a closed channel.
func (d *Driver) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	logger := ctxlog.FromContext(ctx).With("workerID", id)
	logger.Debug("Worker started.")
	for {
		select {
		case <-d.done:
			logger.Debug("Worker finished.")
			return
		case task := <-d.tasks:
			logger.Debug("Worker picked up task.", "key", task.Key.String())
			select {
			case d.results <- driver.Execute(ctx, d.reg, task):
			case <-d.done:
				logger.Debug("Worker finished.")
				return
			}
		}
	}
}

// Submit queues the task for the next free worker.
func (d *Driver) Submit(ctx context.Context, task *driver.Task) error {
	select {
	case d.tasks <- task:
		return nil
	case <-d.done:
		return fmt.Errorf("driver is closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results streams completions as workers finish.
func (d *Driver) Results() <-chan *driver.Result {
	return d.results
}

// Close stops the workers and closes the results channel once they have
// all returned, so no send can race the close.
func (d *Driver) Close() error {
	d.once.Do(func() {
		close(d.done)
		d.wg.Wait()
		close(d.results)
	})
	return nil
}
