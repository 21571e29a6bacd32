package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/driver"
	"github.com/vk/loomgo/internal/registry"
	"github.com/vk/loomgo/internal/store"
)

// Worker is the remote end of the socketio driver: it joins the broker,
// executes incoming tasks against its local catalog, and emits results.
// Run one per worker process.
type Worker struct {
	reg *registry.Registry
	io  *socket.Socket
}

// NewWorker connects a worker to the broker.
func NewWorker(ctx context.Context, cfg Config, reg *registry.Registry) (*Worker, error) {
	logger := ctxlog.FromContext(ctx).With("worker", "socketio", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing broker URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	w := &Worker{reg: reg, io: manager.Socket(cfg.Namespace, opts)}

	w.io.On(types.EventName(taskEvent), func(data ...any) {
		if len(data) == 0 {
			return
		}
		raw, err := normalizeEvent(data[0])
		if err != nil {
			logger.Error("Discarding malformed task event.", "error", err)
			return
		}
		task, err := DecodeTask(raw)
		if err != nil {
			logger.Error("Discarding undecodable task.", "error", err)
			return
		}
		logger.Debug("Worker executing task.", "key", task.Key.String())
		result := driver.Execute(ctx, w.reg, task)
		payload, err := encodeResult(result)
		if err != nil {
			logger.Error("Cannot encode result.", "key", task.Key.String(), "error", err)
			payload, _ = json.Marshal(resultPayload{Key: task.Key.String(), Error: err.Error()})
		}
		if err := w.io.Emit(resultEvent, json.RawMessage(payload)); err != nil {
			logger.Error("Cannot emit result.", "key", task.Key.String(), "error", err)
		}
	})

	w.io.Connect()
	logger.Info("Worker joined broker.", "namespace", cfg.Namespace)
	return w, nil
}

// Close disconnects the worker from the broker.
func (w *Worker) Close() error {
	w.io.Disconnect()
	return nil
}

func encodeResult(result *driver.Result) ([]byte, error) {
	payload := resultPayload{Key: result.Key.String()}
	if result.Err != nil {
		payload.Error = result.Err.Error()
		return json.Marshal(payload)
	}
	data, err := store.Encode(result.Value)
	if err != nil {
		return nil, err
	}
	payload.Value = data
	if len(result.Channels) > 0 {
		payload.Channels = make(map[string]json.RawMessage, len(result.Channels))
		for name, val := range result.Channels {
			data, err := store.Encode(val)
			if err != nil {
				return nil, err
			}
			payload.Channels[name] = data
		}
	}
	return json.Marshal(payload)
}
