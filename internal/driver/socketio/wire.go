package socketio

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/driver"
	"github.com/vk/loomgo/internal/registry"
	"github.com/vk/loomgo/internal/store"
)

// taskPayload is the wire form of one dispatched task. Argument and
// binding values travel as store envelopes (type plus JSON value), the
// same encoding durable stores use.
type taskPayload struct {
	Key      string                     `json:"key"`
	Function string                     `json:"function"`
	Args     []json.RawMessage          `json:"args"`
	Bindings map[string]json.RawMessage `json:"bindings,omitempty"`
}

// resultPayload is the wire form of one completion.
type resultPayload struct {
	Key      string                     `json:"key"`
	Value    json.RawMessage            `json:"value,omitempty"`
	Channels map[string]json.RawMessage `json:"channels,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

func encodeTask(task *driver.Task) ([]byte, error) {
	payload := taskPayload{
		Key:      task.Key.String(),
		Function: task.Function,
		Args:     make([]json.RawMessage, len(task.Call.Args)),
	}
	for i, arg := range task.Call.Args {
		data, err := store.Encode(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		payload.Args[i] = data
	}
	if len(task.Call.Bindings) > 0 {
		payload.Bindings = make(map[string]json.RawMessage, len(task.Call.Bindings))
		for name, val := range task.Call.Bindings {
			data, err := store.Encode(val)
			if err != nil {
				return nil, fmt.Errorf("binding %q: %w", name, err)
			}
			payload.Bindings[name] = data
		}
	}
	return json.Marshal(payload)
}

// DecodeTask reverses encodeTask. Remote workers use it to reconstruct
// the call before executing it against their own catalog.
func DecodeTask(data []byte) (*driver.Task, error) {
	var payload taskPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	key, err := callid.ParseKey(payload.Key)
	if err != nil {
		return nil, err
	}
	call := &registry.Call{}
	for i, raw := range payload.Args {
		val, err := store.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		call.Args = append(call.Args, val)
	}
	if len(payload.Bindings) > 0 {
		call.Bindings = make(map[string]cty.Value, len(payload.Bindings))
		for name, raw := range payload.Bindings {
			val, err := store.Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("binding %q: %w", name, err)
			}
			call.Bindings[name] = val
		}
	}
	return &driver.Task{Key: key, Function: payload.Function, Call: call}, nil
}

func decodeResult(data any) (*driver.Result, error) {
	raw, err := normalizeEvent(data)
	if err != nil {
		return nil, err
	}
	var payload resultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	key, err := callid.ParseKey(payload.Key)
	if err != nil {
		return nil, err
	}
	result := &driver.Result{Key: key}
	if payload.Error != "" {
		result.Err = &driver.ExecError{Key: key, Err: errors.New(payload.Error)}
		return result, nil
	}
	if payload.Value != nil {
		value, err := store.Decode(payload.Value)
		if err != nil {
			return nil, err
		}
		result.Value = value
	}
	if len(payload.Channels) > 0 {
		result.Channels = make(map[string]cty.Value, len(payload.Channels))
		for name, raw := range payload.Channels {
			val, err := store.Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("channel %q: %w", name, err)
			}
			result.Channels[name] = val
		}
	}
	return result, nil
}

// normalizeEvent turns a raw socket.io event argument into JSON bytes,
// whatever shape the transport delivered it in.
func normalizeEvent(data any) ([]byte, error) {
	switch v := data.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
