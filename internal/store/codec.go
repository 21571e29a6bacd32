package store

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// envelope is the serialized form of one stored result: the value's cty
// type alongside its JSON encoding, so the exact type is reconstructed on
// load.
type envelope struct {
	Type  json.RawMessage `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Encode serializes a result value for durable storage or transport.
func Encode(value cty.Value) ([]byte, error) {
	ty := value.Type()
	tyJSON, err := ctyjson.MarshalType(ty)
	if err != nil {
		return nil, fmt.Errorf("encoding result type: %w", err)
	}
	valJSON, err := ctyjson.Marshal(value, ty)
	if err != nil {
		return nil, fmt.Errorf("encoding result value: %w", err)
	}
	return json.Marshal(envelope{Type: tyJSON, Value: valJSON})
}

// Decode reverses Encode.
func Decode(data []byte) (cty.Value, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return cty.NilVal, fmt.Errorf("decoding result envelope: %w", err)
	}
	ty, err := ctyjson.UnmarshalType(env.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decoding result type: %w", err)
	}
	value, err := ctyjson.Unmarshal(env.Value, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decoding result value: %w", err)
	}
	return value, nil
}
