package domain

import (
	"encoding/json"
	"fmt"
)

// Command is an opaque JSON object submitted by a viewer and forwarded verbatim to the producer.
type Command map[string]any

// Message is an opaque JSON object emitted by the producer.
type Message map[string]any

// Snapshot is the full current producer state relevant to viewers. Each one
// replaces the previous snapshot entirely.
type Snapshot map[string]any

// ChartBucket maps a chart kind to the values recorded for it, in arrival order.
type ChartBucket map[string][]any

// DecodeObject unmarshals data into a JSON object, rejecting any other JSON shape.
func DecodeObject(data []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected JSON object, got %T", ErrMalformedPayload, v)
	}
	return obj, nil
}
