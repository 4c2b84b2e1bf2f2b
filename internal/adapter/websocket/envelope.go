package websocket

import (
	"encoding/json"
	"fmt"
)

// EventIdleWarning is sent once to a viewer that has been silent for idleWarningTime.
const EventIdleWarning = "idle_warning"

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(outboundEnvelope{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	return data, nil
}
