// Package socketio provides a distributed execution backend: tasks are
// serialized and emitted to a broker over socket.io, remote workers
// holding the same function catalog execute them, and completions come
// back as events. Function bodies are never serialized; remote workers
// resolve them by name from their own catalog.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/driver"
)

// Config carries the broker connection settings.
type Config struct {
	// URL is the broker endpoint, e.g. "wss://broker:8443/loom".
	URL string
	// Namespace is the socket.io namespace tasks are exchanged on.
	Namespace string
	// ConnectTimeout bounds the initial connection handshake.
	ConnectTimeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

const (
	taskEvent   = "loom:task"
	resultEvent = "loom:result"
)

// Driver dispatches tasks to remote workers through a socket.io broker.
type Driver struct {
	io        *socket.Socket
	manager   *socket.Manager
	results   chan *driver.Result
	done      chan struct{}
	once      sync.Once
	connected atomic.Bool
}

// New connects to the broker and starts collecting result events. It
// fails if the initial connection does not come up within the configured
// timeout.
func New(ctx context.Context, cfg Config) (*Driver, error) {
	logger := ctxlog.FromContext(ctx).With("driver", "socketio", "url", cfg.URL)

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing broker URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	d := &Driver{
		results: make(chan *driver.Result, 64),
		done:    make(chan struct{}),
	}
	d.manager = socket.NewManager(baseURL, opts)
	d.io = d.manager.Socket(cfg.Namespace, opts)

	connectDone := make(chan error, 1)
	d.io.On(types.EventName("connect"), func(...any) {
		d.connected.Store(true)
		logger.Info("Connected to broker.", "namespace", cfg.Namespace, "sid", d.io.Id())
		select {
		case connectDone <- nil:
		default:
		}
	})
	d.io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				select {
				case connectDone <- err:
				default:
				}
			}
		}
	})
	d.io.On(types.EventName(resultEvent), func(data ...any) {
		if len(data) == 0 {
			return
		}
		result, err := decodeResult(data[0])
		if err != nil {
			logger.Error("Discarding malformed result event.", "error", err)
			return
		}
		d.deliver(result)
	})

	d.io.Connect()

	select {
	case err := <-connectDone:
		if err != nil {
			d.io.Disconnect()
			return nil, fmt.Errorf("connecting to broker: %w", err)
		}
	case <-time.After(timeout):
		d.io.Disconnect()
		return nil, fmt.Errorf("timed out connecting to broker at %s", cfg.URL)
	case <-ctx.Done():
		d.io.Disconnect()
		return nil, ctx.Err()
	}

	return d, nil
}

// Submit serializes the task and emits it to the broker. Completion
// arrives later as a result event.
func (d *Driver) Submit(ctx context.Context, task *driver.Task) error {
	select {
	case <-d.done:
		return fmt.Errorf("driver is closed")
	default:
	}
	if !d.connected.Load() {
		return fmt.Errorf("broker connection is down")
	}
	payload, err := encodeTask(task)
	if err != nil {
		return fmt.Errorf("encoding task %s: %w", task.Key, err)
	}
	ctxlog.FromContext(ctx).Debug("Emitting task to broker.", "key", task.Key.String())
	return d.io.Emit(taskEvent, json.RawMessage(payload))
}

// deliver hands a decoded result to the consumer. The transport may fire
// event handlers after Close, so the result channel stays open and late
// deliveries drop out through the done channel instead.
func (d *Driver) deliver(result *driver.Result) {
	select {
	case d.results <- result:
	case <-d.done:
	}
}

// Results streams completions collected from the broker.
func (d *Driver) Results() <-chan *driver.Result {
	return d.results
}

// Close disconnects from the broker and releases any handler still
// holding a result.
func (d *Driver) Close() error {
	d.once.Do(func() {
		close(d.done)
		d.io.Disconnect()
	})
	return nil
}
