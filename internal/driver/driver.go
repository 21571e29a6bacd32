// Package driver defines the pluggable execution backend contract. A
// driver receives ready calls with fully resolved arguments, executes them
// somewhere (inline, on a local worker pool, or on remote workers), and
// reports completions asynchronously. The scheduler decides *what* may run;
// the driver decides the real concurrency model.
package driver

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/registry"
)

// Task is one dispatched call: its identity plus resolved inputs. By the
// time a task reaches a driver, no symbolic references remain.
type Task struct {
	Key      callid.Key
	Function string
	Call     *registry.Call
}

// Result is the outcome of one task: the primary value, any named output
// channels the execution produced, or the failure.
type Result struct {
	Key      callid.Key
	Value    cty.Value
	Channels map[string]cty.Value
	Err      error
}

// ExecError tags a task failure with the failing call so the run's error
// names the culprit.
type ExecError struct {
	Key callid.Key
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Key, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Driver is the execution backend contract. Drivers are created per run.
//
// Submit hands over a ready task; it must not silently drop one, and each
// submitted task must eventually appear exactly once on Results. Submit
// may block to apply backpressure (a sequential driver executes inline
// before returning) but must not wait for other tasks' completions.
//
// Close releases backend resources; no Submit may follow it.
type Driver interface {
	Submit(ctx context.Context, task *Task) error
	Results() <-chan *Result
	Close() error
}

// Execute runs one task against the catalog. It is the shared core of the
// local backends and of remote workers: look up the handler, run it,
// wrap failures.
func Execute(ctx context.Context, reg *registry.Registry, task *Task) *Result {
	fn, ok := reg.Function(task.Function)
	if !ok {
		return &Result{Key: task.Key, Err: &ExecError{Key: task.Key, Err: fmt.Errorf("function %q not in catalog", task.Function)}}
	}
	value, channels, err := fn.Handler(ctx, task.Call)
	if err != nil {
		return &Result{Key: task.Key, Err: &ExecError{Key: task.Key, Err: err}}
	}
	return &Result{Key: task.Key, Value: value, Channels: channels}
}
