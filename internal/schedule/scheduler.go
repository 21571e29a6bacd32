package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/blueprint"
	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/driver"
	"github.com/vk/loomgo/internal/graph"
	"github.com/vk/loomgo/internal/store"
)

// DriverError reports a dispatch failure: the backend could not accept or
// deliver a task. It surfaces as the affected call's failure.
type DriverError struct {
	Key callid.Key
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("dispatching %s: %v", e.Key, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// run tracks the mutable state of one blueprint execution.
type run struct {
	bp    *blueprint.Blueprint
	st    store.Store
	drv   driver.Driver
	nodes map[callid.Key]*graph.Node

	depCount   map[callid.Key]int
	dependents map[callid.Key][]callid.Key
	started    map[callid.Key]time.Time

	ready         []callid.Key
	inflight      int
	completed     int
	failure       error
	executed      int
	failedSubmits chan *driver.Result
}

// Run executes a blueprint to completion against the given store and
// driver and returns the root call's value. Expansion has already proven
// the graph acyclic, so every call eventually becomes ready unless a
// failure stops dispatch first.
func Run(ctx context.Context, bp *blueprint.Blueprint, st store.Store, drv driver.Driver) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Run: starting blueprint execution.", "root", bp.Root().String(), "nodes", bp.Len())

	r := &run{
		bp:         bp,
		st:         st,
		drv:        drv,
		nodes:      make(map[callid.Key]*graph.Node, bp.Len()),
		depCount:   make(map[callid.Key]int, bp.Len()),
		dependents: make(map[callid.Key][]callid.Key, bp.Len()),
		started:    make(map[callid.Key]time.Time),
		// Buffered so a submission goroutine can report failure even if
		// the main loop is between selects.
		failedSubmits: make(chan *driver.Result, 16),
	}

	for _, node := range bp.Graph().Nodes() {
		r.nodes[node.Key] = node
		seen := make(map[callid.Key]struct{})
		for _, dep := range node.Deps {
			depKey := dep.Primary()
			if _, dup := seen[depKey]; dup {
				continue
			}
			seen[depKey] = struct{}{}
			r.depCount[node.Key]++
			r.dependents[depKey] = append(r.dependents[depKey], node.Key)
		}
		if r.depCount[node.Key] == 0 {
			r.ready = append(r.ready, node.Key)
		}
	}
	logger.Debug("Run: initial ready set computed.", "ready", len(r.ready))

	err := r.loop(ctx)
	if err != nil {
		runsTotal.WithLabelValues("failure").Inc()
		return cty.NilVal, err
	}
	runsTotal.WithLabelValues("success").Inc()
	logger.Debug("Run: all calls complete.", "executed", r.executed, "total", bp.Len())

	value, err := st.Get(ctx, bp.Root())
	if err != nil {
		return cty.NilVal, err
	}
	return value, nil
}

// loop dispatches ready calls and collects completions until the graph is
// done or a failure stops dispatch. In-flight siblings of a failed call
// are allowed to finish; the first failure is reported.
func (r *run) loop(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	for r.completed < len(r.nodes) || r.inflight > 0 {
		if r.failure == nil {
			if err := r.dispatchReady(ctx); err != nil {
				r.failure = err
			}
		}

		if r.inflight == 0 {
			if r.failure != nil {
				break
			}
			if r.completed < len(r.nodes) {
				// Unreachable on a validated graph; guards against a
				// scheduler bug hanging the run forever.
				return fmt.Errorf("scheduler stalled with %d of %d calls incomplete",
					len(r.nodes)-r.completed, len(r.nodes))
			}
			break
		}

		select {
		case result, ok := <-r.drv.Results():
			if !ok {
				return fmt.Errorf("driver closed its results channel mid-run")
			}
			r.inflight--
			r.collect(ctx, result)
		case result := <-r.failedSubmits:
			r.inflight--
			r.collect(ctx, result)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if r.failure != nil {
		logger.Error("Run: blueprint execution failed.", "error", r.failure)
		return r.failure
	}
	return nil
}

// dispatchReady drains the ready set: memoized calls complete on the
// spot, everything else is resolved and submitted. Submission runs on its
// own goroutine so a blocking driver never stalls collection.
func (r *run) dispatchReady(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	for len(r.ready) > 0 {
		key := r.ready[0]
		r.ready = r.ready[1:]
		node := r.nodes[key]

		cached, err := r.isCached(ctx, node)
		if err != nil {
			return err
		}
		if cached {
			logger.Debug("Dispatch: store hit, skipping execution.", "key", key.String())
			cacheHitsTotal.Inc()
			r.complete(ctx, key)
			continue
		}

		call, err := resolveCall(ctx, r.st, node)
		if err != nil {
			return err
		}
		task := &driver.Task{Key: key, Function: node.Function, Call: call}

		logger.Debug("Dispatch: submitting call.", "key", key.String())
		r.started[key] = time.Now()
		r.inflight++
		nodeExecutionsTotal.Inc()
		go func() {
			if err := r.drv.Submit(ctx, task); err != nil {
				// Submit already failed, so no result event will come;
				// synthesize one to keep the accounting exact.
				r.submitFailure(task.Key, err)
			}
		}()
	}
	return nil
}

// submitFailure is invoked from a submission goroutine. The failure is
// funneled back through a dedicated channel so the main loop stays the
// only place results are handled.
func (r *run) submitFailure(key callid.Key, err error) {
	r.failedSubmits <- &driver.Result{Key: key, Err: &DriverError{Key: key, Err: err}}
}

// isCached reports whether the call's result, including every declared
// channel, is already in the store.
func (r *run) isCached(ctx context.Context, node *graph.Node) (bool, error) {
	ok, err := r.st.Contains(ctx, node.Key)
	if err != nil || !ok {
		return false, err
	}
	for _, ch := range node.Channels {
		ok, err := r.st.Contains(ctx, node.Key.WithChannel(ch))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// collect handles one completion: persist the result, then release
// dependents. A failed execution is never written to the store, and a
// result that cannot be durably stored does not complete its call.
func (r *run) collect(ctx context.Context, result *driver.Result) {
	logger := ctxlog.FromContext(ctx)
	if start, ok := r.started[result.Key]; ok {
		nodeDuration.Observe(time.Since(start).Seconds())
		delete(r.started, result.Key)
	}

	if result.Err != nil {
		logger.Error("Collect: call failed.", "key", result.Key.String(), "error", result.Err)
		nodeFailuresTotal.Inc()
		if r.failure == nil {
			r.failure = result.Err
		}
		return
	}

	r.executed++
	if err := r.st.Set(ctx, result.Key, result.Value); err != nil {
		if r.failure == nil {
			r.failure = err
		}
		return
	}
	node := r.nodes[result.Key]
	for _, ch := range node.Channels {
		val, ok := result.Channels[ch]
		if !ok {
			if r.failure == nil {
				r.failure = &driver.ExecError{
					Key: result.Key,
					Err: fmt.Errorf("execution produced no value for declared channel %q", ch),
				}
			}
			return
		}
		if err := r.st.Set(ctx, result.Key.WithChannel(ch), val); err != nil {
			if r.failure == nil {
				r.failure = err
			}
			return
		}
	}

	logger.Debug("Collect: call complete.", "key", result.Key.String())
	r.complete(ctx, result.Key)
}

// complete marks a call done and moves any call that was waiting solely
// on it into the ready set.
func (r *run) complete(ctx context.Context, key callid.Key) {
	r.completed++
	for _, dependent := range r.dependents[key] {
		r.depCount[dependent]--
		if r.depCount[dependent] == 0 {
			r.ready = append(r.ready, dependent)
		}
	}
}
